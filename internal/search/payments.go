package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/shopspring/decimal"
)

const MaxPageSize = 100

type PaymentDoc struct {
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Method        string          `json:"method"`
	Purpose       string          `json:"purpose"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	UserID        *uint           `json:"user_id,omitempty"`
	CartID        *uint           `json:"cart_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

func DocFromPayment(p *models.Payment) PaymentDoc {
	return PaymentDoc{
		OrderID:       p.OrderID,
		TransactionID: p.TransactionID,
		Method:        p.Method,
		Purpose:       p.Purpose,
		Status:        p.Status,
		Amount:        p.Amount,
		UserID:        p.UserID,
		CartID:        p.CartID,
		CreatedAt:     p.CreatedAt,
		PaidAt:        p.PaidAt,
	}
}

type Query struct {
	UserID uint
	Text   string
	From   int
	Size   int
}

type Result struct {
	Total int64
	Docs  []PaymentDoc
}

type PaymentIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewPaymentIndex(es *elasticsearch.Client, index string) *PaymentIndex {
	return &PaymentIndex{es: es, index: index}
}

// IndexPayment upserts the payment document keyed by order id.
func (p *PaymentIndex) IndexPayment(ctx context.Context, pay *models.Payment) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(DocFromPayment(pay)); err != nil {
		return fmt.Errorf("encode payment doc: %w", err)
	}

	res, err := p.es.Index(
		p.index,
		&buf,
		p.es.Index.WithContext(ctx),
		p.es.Index.WithDocumentID(pay.OrderID),
	)
	if err != nil {
		return fmt.Errorf("index payment %s: %w", pay.OrderID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("index payment %s: %s: %s", pay.OrderID, res.Status(), body)
	}
	return nil
}

func (p *PaymentIndex) SearchPayments(ctx context.Context, q Query) (*Result, error) {
	size := q.Size
	if size <= 0 {
		size = 20
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	from := q.From
	if from < 0 {
		from = 0
	}

	boolQuery := map[string]any{
		"filter": []any{
			map[string]any{"term": map[string]any{"user_id": q.UserID}},
		},
	}
	if q.Text != "" {
		boolQuery["must"] = []any{
			map[string]any{"multi_match": map[string]any{
				"query":  q.Text,
				"fields": []string{"order_id^2", "method", "status", "purpose"},
			}},
		}
	}
	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := p.es.Search(
		p.es.Search.WithContext(ctx),
		p.es.Search.WithIndex(p.index),
		p.es.Search.WithBody(&buf),
		p.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search payments: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("search payments: %s: %s", res.Status(), b)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source PaymentDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]PaymentDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return &Result{Total: r.Hits.Total.Value, Docs: docs}, nil
}
