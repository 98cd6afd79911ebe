package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"medical-triage/internal/domain"
	"medical-triage/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// TriageUseCase is the orchestrator the handler delegates to.
type TriageUseCase interface {
	Triage(ctx context.Context, in usecase.TriageInput) (usecase.TriageOutput, error)
}

type triageRequest struct {
	UserText            string                    `json:"userText"`
	ConversationHistory []domain.ConversationTurn `json:"conversationHistory"`
}

type textPayload struct {
	AIResponse string `json:"aiResponse"`
	Evaluation string `json:"evaluation"`
}

type triageResponse struct {
	Text                textPayload               `json:"text"`
	AudioBuffer         audioBuffer               `json:"audioBuffer"`
	ConversationHistory []domain.ConversationTurn `json:"conversationHistory"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// audioBuffer is encoded as a JSON array of byte values, which browser
// clients turn straight into a Uint8Array.
type audioBuffer []byte

func (b audioBuffer) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.Grow(len(b)*4 + 2)
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

func (b *audioBuffer) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return fmt.Errorf("handler: audio byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// Handler adapts API Gateway proxy events to the triage use case.
type Handler struct {
	uc    TriageUseCase
	newID func() string
}

func NewHandler(uc TriageUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc, newID: uuid.NewString}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = h.newID()
	}
	log := slog.With("correlation_id", correlationID)

	if req.HTTPMethod != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, correlationID, errorResponse{Error: "Method not allowed"}), nil
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			log.Warn("triage request rejected", "reason", "invalid_base64_body", "err", err)
			return respondError(correlationID, usecase.ErrorInvalidInput, "Invalid request body."), nil
		}
		body = string(decoded)
	}

	var in triageRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		log.Warn("triage request rejected", "reason", "invalid_json_body", "err", err)
		return respondError(correlationID, usecase.ErrorInvalidInput, "Invalid request body."), nil
	}

	out, err := h.uc.Triage(ctx, usecase.TriageInput{
		UserText: in.UserText,
		History:  in.ConversationHistory,
	})
	if err != nil {
		code, reason := classify(err)
		level := slog.LevelError
		if code == usecase.ErrorInvalidInput {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "triage request failed", "code", code, "reason", reason, "err", err)
		return respondError(correlationID, code, messageFor(code, reason)), nil
	}

	log.Info("triage request completed",
		"verdict", out.Verdict.String(),
		"language", string(out.Language),
		"history_len", len(out.History),
		"audio_bytes", len(out.Audio),
	)
	return respond(http.StatusOK, correlationID, triageResponse{
		Text: textPayload{
			AIResponse: out.Reply,
			Evaluation: out.Advisory,
		},
		AudioBuffer:         out.Audio,
		ConversationHistory: out.History,
	}), nil
}

func classify(err error) (usecase.ErrorCode, string) {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return ucErr.Code, ucErr.Reason
	}
	return usecase.ErrorInternal, "unclassified"
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorGeneration, usecase.ErrorSynthesis:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(code usecase.ErrorCode, reason string) string {
	switch code {
	case usecase.ErrorInvalidInput:
		if reason == "empty_user_text" {
			return "userText is required."
		}
		return "Invalid request."
	case usecase.ErrorConfiguration:
		return "Missing required configuration."
	case usecase.ErrorGeneration:
		return "Error during AI text generation."
	case usecase.ErrorSynthesis:
		return "Error during text-to-speech conversion."
	default:
		return "Internal error."
	}
}

func respondError(correlationID string, code usecase.ErrorCode, msg string) events.APIGatewayProxyResponse {
	return respond(statusFor(code), correlationID, errorResponse{Error: msg, Code: string(code)})
}

func respond(status int, correlationID string, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "correlation_id", correlationID, "err", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal error.","code":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
