package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adesai/topoguard/internal/domain"
	"github.com/adesai/topoguard/internal/service"
)

const (
	serviceName    = "topoguard"
	serviceVersion = "0.1.0"

	maxBatchSize    = 10000
	maxRequestBytes = 16 << 20
)

// APIHandlers exposes HTTP handlers for the detection API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.DetectionService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.DetectionService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

type transactionRequest struct {
	TransactionID string         `json:"transaction_id"`
	FromAccount   string         `json:"from_account"`
	ToAccount     string         `json:"to_account"`
	Amount        float64        `json:"amount"`
	Timestamp     string         `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type detectionResponse struct {
	TransactionID       string            `json:"transaction_id"`
	AnomalyScore        float64           `json:"anomaly_score"`
	IsFraudulent        bool              `json:"is_fraudulent"`
	Reason              string            `json:"reason"`
	GraphFeatures       domain.FeatureSet `json:"graph_features"`
	TopologicalFeatures domain.FeatureSet `json:"topological_features"`
	TopologyScore       float64           `json:"topology_score"`
	StructureScore      float64           `json:"structure_score"`
}

type statsResponse struct {
	NumTransactions int     `json:"num_transactions"`
	NumAccounts     int     `json:"num_accounts"`
	NumEdges        int     `json:"num_edges"`
	GraphDensity    float64 `json:"graph_density"`
	HasReference    bool    `json:"has_reference"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandlers) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload transactionRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := payload.toTransaction()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.Detect(r.Context(), tx)
	respondJSON(w, http.StatusOK, toDetectionResponse(result))
}

func (h *APIHandlers) handleDetectBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload []transactionRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "batch is empty")
		return
	}
	if len(payload) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds %d transactions", maxBatchSize))
		return
	}

	txs := make([]domain.Transaction, 0, len(payload))
	for i, req := range payload {
		tx, err := req.toTransaction()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("transaction %d: %v", i, err))
			return
		}
		txs = append(txs, tx)
	}

	results := h.service.DetectBatch(r.Context(), txs)
	responses := make([]detectionResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, toDetectionResponse(result))
	}
	respondJSON(w, http.StatusOK, responses)
}

func (h *APIHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	stats := h.service.Stats(r.Context())
	respondJSON(w, http.StatusOK, statsResponse{
		NumTransactions: stats.NumTransactions,
		NumAccounts:     stats.NumAccounts,
		NumEdges:        stats.NumEdges,
		GraphDensity:    stats.GraphDensity,
		HasReference:    stats.HasReference,
	})
}

func (t transactionRequest) toTransaction() (domain.Transaction, error) {
	id := strings.TrimSpace(t.TransactionID)
	if id == "" {
		return domain.Transaction{}, errors.New("transaction_id is required")
	}
	from := strings.TrimSpace(t.FromAccount)
	if from == "" {
		return domain.Transaction{}, errors.New("from_account is required")
	}
	to := strings.TrimSpace(t.ToAccount)
	if to == "" {
		return domain.Transaction{}, errors.New("to_account is required")
	}
	if t.Amount <= 0 {
		return domain.Transaction{}, errors.New("amount must be positive")
	}
	ts, err := parseTimestamp(t.Timestamp)
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		ID:          id,
		FromAccount: from,
		ToAccount:   to,
		Amount:      t.Amount,
		Timestamp:   ts,
		Metadata:    t.Metadata,
	}, nil
}

// parseTimestamp accepts RFC 3339 timestamps, with or without a numeric
// offset, and ISO-8601 timestamps lacking a zone (treated as UTC).
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05.999999999", value); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

func toDetectionResponse(result domain.DetectionResult) detectionResponse {
	return detectionResponse{
		TransactionID:       result.TransactionID,
		AnomalyScore:        result.AnomalyScore,
		IsFraudulent:        result.IsFraudulent,
		Reason:              result.Reason,
		GraphFeatures:       result.GraphFeatures,
		TopologicalFeatures: result.TopologicalFeatures,
		TopologyScore:       result.TopologyScore,
		StructureScore:      result.StructureScore,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
