package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/spigell/interview-brain/internal/ai"
	"github.com/spigell/interview-brain/internal/indexer"
	"github.com/spigell/interview-brain/internal/interview"
)

type startRequest struct {
	CandidateName string `json:"candidate_name"`
	Role          string `json:"role"`
	Minutes       int    `json:"minutes"`
}

type answerRequest struct {
	Text string `json:"text"`
}

type questionResponse struct {
	SessionID string             `json:"session_id"`
	Intro     string             `json:"intro,omitempty"`
	Question  ai.Question        `json:"question"`
	Source    interview.Source   `json:"source"`
	Reason    interview.Reason   `json:"reason,omitempty"`
	Coverage  interview.Coverage `json:"coverage"`
}

type indexResponse struct {
	Result indexer.Result `json:"result"`
	Status indexer.Status `json:"status"`
}

func (s *Server) index(c echo.Context) error {
	res, err := s.svc.IndexAllContent(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, indexResponse{Result: res, Status: s.svc.IndexStatus()})
}

func (s *Server) start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.CandidateName = strings.TrimSpace(req.CandidateName)
	req.Role = strings.TrimSpace(req.Role)
	if req.CandidateName == "" || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "candidate_name and role are required")
	}
	if req.Minutes < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "minutes must not be negative")
	}

	res, err := s.svc.Start(c.Request().Context(), req.CandidateName, req.Role, req.Minutes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, questionResponse{
		SessionID: res.SessionID,
		Intro:     res.Intro,
		Question:  res.Outcome.Question,
		Source:    res.Outcome.Source,
		Reason:    res.Outcome.Reason,
		Coverage:  res.Coverage,
	})
}

func (s *Server) answer(c echo.Context) error {
	id := c.Param("id")

	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	res, err := s.svc.Next(c.Request().Context(), id, req.Text)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, questionResponse{
		SessionID: id,
		Question:  res.Outcome.Question,
		Source:    res.Outcome.Source,
		Reason:    res.Outcome.Reason,
		Coverage:  res.Coverage,
	})
}

func (s *Server) session(c echo.Context) error {
	sess, err := s.svc.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}
