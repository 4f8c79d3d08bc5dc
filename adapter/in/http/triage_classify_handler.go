package http

import (
	"bytes"
	"errors"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"triage_server/core/agent/llm"
	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/pkg/apperr"
	"triage_server/pkg/response"
)

// HeaderOpenAIKey lets a caller classify with their own OpenAI key.
const HeaderOpenAIKey = "X-OpenAI-Key"

// ServiceForKey builds a classification service bound to a caller-supplied key.
type ServiceForKey func(apiKey string) in.ClassificationService

type ClassifyHandler struct {
	service    in.ClassificationService
	forKey     ServiceForKey
	middleware []fiber.Handler
}

func NewClassifyHandler(service in.ClassificationService) *ClassifyHandler {
	return &ClassifyHandler{service: service}
}

// WithKeyOverride enables the X-OpenAI-Key header.
func (h *ClassifyHandler) WithKeyOverride(forKey ServiceForKey) *ClassifyHandler {
	h.forKey = forKey
	return h
}

// Use adds middleware in front of the classify routes only.
func (h *ClassifyHandler) Use(handlers ...fiber.Handler) *ClassifyHandler {
	h.middleware = append(h.middleware, handlers...)
	return h
}

// Register mounts the classify routes. Middleware from Use is attached per
// route, so other /api routes are not affected by it.
func (h *ClassifyHandler) Register(app fiber.Router) {
	api := app.Group("/api")
	api.Post("/classify-emails", h.chain(h.ClassifyEmails)...)
	api.Post("/classify-batch", h.chain(h.ClassifyBatch)...)
	api.Post("/classify-advanced", h.chain(h.ClassifyAdvanced)...)
}

func (h *ClassifyHandler) chain(handler fiber.Handler) []fiber.Handler {
	return slices.Concat(h.middleware, []fiber.Handler{handler})
}

type classifyRequest struct {
	Emails json.RawMessage `json:"emails"`
}

// ClassifyEmails classifies each email separately and echoes it back with
// category, confidence and reasoning.
func (h *ClassifyHandler) ClassifyEmails(c *fiber.Ctx) error {
	emails, err := parseEmails(c)
	if err != nil {
		return err
	}

	results, err := h.serviceFor(c).ClassifySingle(c.UserContext(), emails)
	if err != nil {
		return apperr.ClassificationFailed("Classification failed", err)
	}
	return response.OK(c, results)
}

// ClassifyBatch classifies a non-empty list in one model call.
func (h *ClassifyHandler) ClassifyBatch(c *fiber.Ctx) error {
	emails, err := parseEmails(c)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return apperr.InvalidEmails(errors.New("emails is empty"))
	}

	results, err := h.serviceFor(c).ClassifyBatch(c.UserContext(), emails)
	if err != nil {
		if errors.Is(err, llm.ErrParse) {
			return apperr.ParseFailed(err)
		}
		if errors.Is(err, llm.ErrModelInvocation) {
			return apperr.ModelInvocation("Batch classification failed", err)
		}
		return apperr.ClassificationFailed("Batch classification failed", err)
	}
	return response.OK(c, results)
}

// ClassifyAdvanced classifies each email separately with priority, tags and
// an action flag.
func (h *ClassifyHandler) ClassifyAdvanced(c *fiber.Ctx) error {
	emails, err := parseEmails(c)
	if err != nil {
		return err
	}

	results, err := h.serviceFor(c).ClassifyAdvanced(c.UserContext(), emails)
	if err != nil {
		return apperr.ClassificationFailed("Advanced classification failed", err)
	}
	return response.OK(c, results)
}

func (h *ClassifyHandler) serviceFor(c *fiber.Ctx) in.ClassificationService {
	if h.forKey != nil {
		if key := strings.TrimSpace(c.Get(HeaderOpenAIKey)); key != "" {
			return h.forKey(key)
		}
	}
	return h.service
}

// parseEmails requires an "emails" field holding a JSON array of emails.
func parseEmails(c *fiber.Ctx) ([]domain.Email, error) {
	var req classifyRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return nil, apperr.InvalidEmails(err)
	}

	raw := bytes.TrimSpace(req.Emails)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, apperr.InvalidEmails(errors.New("emails must be an array"))
	}

	emails := []domain.Email{}
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil, apperr.InvalidEmails(err)
	}
	return emails, nil
}
