package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
	"github.com/yacchin1205/jupyter-mynerva/internal/approval"
	"github.com/yacchin1205/jupyter-mynerva/internal/provider"
	"github.com/yacchin1205/jupyter-mynerva/internal/settings"
)

func (s *Server) getProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"providers":  provider.Providers(),
		"encryption": settings.EncryptionConfigured(),
	})
}

func (s *Server) getConfig(c *fiber.Ctx) error {
	cfg, err := s.deps.Settings.Load()
	if err != nil {
		return err
	}
	// The key itself never goes back out, only whether one is usable.
	return c.JSON(fiber.Map{
		"provider":   cfg.Provider,
		"model":      cfg.Model,
		"apiKeySet":  settings.ResolveAPIKey(cfg) != "",
		"encryption": settings.EncryptionConfigured(),
	})
}

type configRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKey"`
}

func (s *Server) postConfig(c *fiber.Ctx) error {
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if !knownProvider(req.Provider) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown provider: "+req.Provider)
	}

	cfg, err := s.deps.Settings.Load()
	if err != nil {
		return err
	}
	cfg.Provider = req.Provider
	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.APIKey != "" {
		cfg.APIKey = req.APIKey
	}
	if err := s.deps.Settings.Save(cfg); err != nil {
		return err
	}
	s.log.Info("settings updated",
		zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return c.SendStatus(fiber.StatusNoContent)
}

func knownProvider(id string) bool {
	for _, p := range provider.Providers() {
		if p.ID == id {
			return true
		}
	}
	return false
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse carries the latest assistant turn plus whatever now awaits
// review.
type chatResponse struct {
	Message string       `json:"message"`
	Pending []actionView `json:"pending,omitempty"`
}

type actionView struct {
	ID     string          `json:"id"`
	Kind   action.Kind     `json:"kind"`
	Raw    json.RawMessage `json:"action"`
	Status approval.Status `json:"status"`
}

func (s *Server) postChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message is required")
	}
	msg, err := s.deps.Agent.Send(c.Context(), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(chatResponse{Message: msg.Content, Pending: s.pendingViews()})
}

func (s *Server) postContinue(c *fiber.Ctx) error {
	msg, err := s.deps.Agent.Continue(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(chatResponse{Message: msg.Content, Pending: s.pendingViews()})
}

func (s *Server) postCancel(c *fiber.Ctx) error {
	s.deps.Agent.Cancel()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getActions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"pending":  s.pendingViews(),
		"resolved": s.deps.Agent.BatchResolved(),
	})
}

func (s *Server) pendingViews() []actionView {
	acts, ok := s.deps.Agent.PendingActions()
	if !ok {
		return nil
	}
	views := make([]actionView, 0, len(acts))
	for _, a := range acts {
		v := actionView{ID: a.ID, Kind: a.Kind, Raw: a.Raw}
		if st, ok := s.deps.Agent.ActionStatus(a.ID); ok {
			v.Status = st
		}
		views = append(views, v)
	}
	return views
}

type decisionRequest struct {
	Remember bool `json:"remember"`
}

func (s *Server) postApprove(c *fiber.Ctx) error {
	var req decisionRequest
	_ = c.BodyParser(&req)
	if err := s.deps.Agent.Approve(c.Params("id"), req.Remember); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"resolved": s.deps.Agent.BatchResolved()})
}

func (s *Server) postReject(c *fiber.Ctx) error {
	if err := s.deps.Agent.Reject(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"resolved": s.deps.Agent.BatchResolved()})
}

func (s *Server) postAcceptAll(c *fiber.Ctx) error {
	var req decisionRequest
	_ = c.BodyParser(&req)
	touched, err := s.deps.Agent.AcceptAll(req.Remember)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"approved": len(touched), "resolved": true})
}

func (s *Server) postRejectAll(c *fiber.Ctx) error {
	touched, err := s.deps.Agent.RejectAll()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rejected": len(touched), "resolved": true})
}

type redactionRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) postRedaction(c *fiber.Ctx) error {
	var req redactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	s.deps.Agent.SetRedaction(req.Enabled)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	list, err := s.deps.Sessions.List()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sessions": list})
}

type sessionRequest struct {
	Name string `json:"name"`
}

// createSession snapshots the current conversation under a new session.
func (s *Server) createSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	meta, err := s.deps.Sessions.Create(req.Name)
	if err != nil {
		return err
	}
	payload, err := s.deps.Agent.Snapshot()
	if err != nil {
		return err
	}
	if err := s.deps.Sessions.Put(meta.ID, payload); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(meta)
}

// loadSession replaces the live conversation with a stored one. Restored
// actions are historical: visible, never re-runnable.
func (s *Server) loadSession(c *fiber.Ctx) error {
	meta, payload, err := s.deps.Sessions.Get(c.Params("id"))
	if err != nil {
		return err
	}
	if err := s.deps.Agent.Restore(payload); err != nil {
		return err
	}
	s.log.Info("session loaded", zap.String("id", meta.ID), zap.String("name", meta.Name))
	return c.JSON(meta)
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.deps.Sessions.Delete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
