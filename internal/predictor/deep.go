package predictor

import (
	"context"
	"fmt"
	"time"

	"GoldPulse/internal/domain/models"
	domsvc "GoldPulse/internal/domain/service"
	xhttp "GoldPulse/pkg/http"
)

const deepMinSamples = 60

// Deep is the sequence-model tier, served by an external model process over
// HTTP. It is only registered when a service URL is configured.
type Deep struct {
	baseURL string
	horizon time.Duration
	weight  float64
	client  *xhttp.Client
}

// NewDeep creates the deep tier. Returns an error when no service URL is
// configured so the registry can skip the tier.
func NewDeep(baseURL string, timeout, horizon time.Duration, weight float64) (*Deep, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("deep predictor: no model service url configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Deep{
		baseURL: baseURL,
		horizon: horizon,
		weight:  weight,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}, nil
}

func (p *Deep) Name() string    { return "deep" }
func (p *Deep) Weight() float64 { return p.weight }

type deepRequest struct {
	Prices         []float64 `json:"prices"`
	Timestamps     []int64   `json:"timestamps"`
	HorizonMinutes int       `json:"horizon_minutes"`
}

type deepResponse struct {
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// Predict posts the recent window to the model service. A transport error is
// returned so the round can count it, but the ensemble treats it as abstain.
func (p *Deep) Predict(ctx context.Context, history []*models.PriceSample) (*domsvc.Estimate, error) {
	if len(history) < deepMinSamples {
		return nil, nil
	}
	req := deepRequest{
		Prices:         make([]float64, len(history)),
		Timestamps:     make([]int64, len(history)),
		HorizonMinutes: int(p.horizon.Minutes()),
	}
	for i, s := range history {
		req.Prices[i] = s.Price
		req.Timestamps[i] = s.Timestamp.Unix()
	}

	var resp deepResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.baseURL + "/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("deep predict: %w", err)
	}
	if resp.Price <= 0 {
		return nil, nil
	}
	return &domsvc.Estimate{Price: resp.Price, Confidence: resp.Confidence}, nil
}
