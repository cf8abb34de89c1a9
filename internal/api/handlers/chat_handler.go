package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/orchestrator"
)

type ChatHandler struct {
	orchestrator *orchestrator.Orchestrator
	opts         orchestrator.RunOptions
}

func NewChatHandler(o *orchestrator.Orchestrator, opts orchestrator.RunOptions) *ChatHandler {
	return &ChatHandler{orchestrator: o, opts: opts}
}

type chatRequest struct {
	Message string         `json:"message"`
	History []core.Message `json:"history"`
}

// Chat answers one turn of a sales conversation. Only user and assistant
// turns of the history are passed on.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	conversation := make([]core.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		if (m.Role == core.RoleUser || m.Role == core.RoleAssistant) && m.Content != "" {
			conversation = append(conversation, core.Message{Role: m.Role, Content: m.Content})
		}
	}
	conversation = append(conversation, core.Message{Role: core.RoleUser, Content: req.Message})

	res, err := h.orchestrator.Run(r.Context(), conversation, h.opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
