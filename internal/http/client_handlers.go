package httpapi

import (
	"net/http"
	"strings"
	"time"

	"caseflow-data/internal/service"

	"go.uber.org/zap"
)

const maxIntakeBody = 1 << 20 // 1 MiB

// ClientHandler case-management client API.
type ClientHandler struct {
	intake  service.IntakeService
	clients service.ClientService
	export  service.ExportService
	logger  *zap.Logger
}

func NewClientHandler(intake service.IntakeService, clients service.ClientService, export service.ExportService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		intake:  intake,
		clients: clients,
		export:  export,
		logger:  logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *ClientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	// ListClients
	case path == "/case/api/v1/clients" && r.Method == http.MethodGet:
		h.ListClients(w, r)
	// SaveIntake (create)
	case path == "/case/api/v1/clients" && r.Method == http.MethodPost:
		h.SaveIntake(w, r, "")
	// GetClientFullData (must match before GetClient, path is more specific)
	case strings.HasSuffix(path, "/full") && r.Method == http.MethodGet:
		clientID := strings.TrimSuffix(path, "/full")
		clientID = strings.TrimPrefix(clientID, "/case/api/v1/clients/")
		if clientID != "" && !strings.Contains(clientID, "/") {
			h.GetClientFullData(w, r, clientID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// GetClientAudit
	case strings.HasSuffix(path, "/audit") && r.Method == http.MethodGet:
		clientID := strings.TrimSuffix(path, "/audit")
		clientID = strings.TrimPrefix(clientID, "/case/api/v1/clients/")
		if clientID != "" && !strings.Contains(clientID, "/") {
			h.GetClientAudit(w, r, clientID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// GetClient
	case strings.HasPrefix(path, "/case/api/v1/clients/") && r.Method == http.MethodGet:
		clientID := strings.TrimPrefix(path, "/case/api/v1/clients/")
		if clientID != "" && !strings.Contains(clientID, "/") {
			h.GetClient(w, r, clientID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// SaveIntake (update)
	case strings.HasPrefix(path, "/case/api/v1/clients/") && r.Method == http.MethodPut:
		clientID := strings.TrimPrefix(path, "/case/api/v1/clients/")
		if clientID != "" && !strings.Contains(clientID, "/") {
			h.SaveIntake(w, r, clientID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// DeleteClient
	case strings.HasPrefix(path, "/case/api/v1/clients/") && r.Method == http.MethodDelete:
		clientID := strings.TrimPrefix(path, "/case/api/v1/clients/")
		if clientID != "" && !strings.Contains(clientID, "/") {
			h.DeleteClient(w, r, clientID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ============================================
// SaveIntake create/update a client via the intake form
// ============================================

func (h *ClientHandler) SaveIntake(w http.ResponseWriter, r *http.Request, clientID string) {
	ctx := r.Context()

	var payload service.IntakePayload
	if err := readBodyJSON(r, maxIntakeBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	resp, err := h.intake.SaveIntake(ctx, service.SaveIntakeRequest{
		ActorID:  actorID(r),
		ClientID: clientID,
		Payload:  payload,
	})
	if err != nil {
		h.logger.Warn("intake save rejected", zap.String("client_id", clientID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, Ok(resp))
}

// ============================================
// Reads
// ============================================

func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.clients.ListClients(r.Context(), service.ListClientsRequest{
		ActorID: actorID(r),
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		Cursor:  q.Get("cursor"),
		Limit:   parseInt(q.Get("limit"), 0),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request, clientID string) {
	view, err := h.clients.GetClient(r.Context(), actorID(r), clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

func (h *ClientHandler) GetClientFullData(w http.ResponseWriter, r *http.Request, clientID string) {
	full, err := h.clients.GetClientFullData(r.Context(), actorID(r), clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(full))
}

func (h *ClientHandler) GetClientAudit(w http.ResponseWriter, r *http.Request, clientID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	entries, err := h.clients.ListAuditTrail(r.Context(), actorID(r), clientID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

// ============================================
// DeleteClient
// ============================================

func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request, clientID string) {
	if err := h.clients.DeleteClient(r.Context(), actorID(r), clientID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(true))
}

// ============================================
// ExportClients xlsx roster download
// ============================================

func (h *ClientHandler) ExportClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data, err := h.export.ExportClients(r.Context(), actorID(r), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := "clients-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
