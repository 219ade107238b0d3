package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fest-ticketing/internal/logger"
	"fest-ticketing/internal/orders"
	"fest-ticketing/internal/utils"
	"fest-ticketing/internal/webhook"

	"github.com/go-chi/chi/v5"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

type Handler struct {
	Service     *orders.Service
	Reconciler  *webhook.Reconciler
	AdminSecret string
	Logger      *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the service error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError

	var verr *orders.ValidationError
	var uerr *orders.UpstreamError
	var nferr *orders.NotFoundError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &uerr):
		status = http.StatusBadGateway
	case errors.As(err, &nferr):
		status = http.StatusNotFound
	}

	writeJSON(w, status, utils.ErrorResponse(message, err.Error()))
}

// ---------------- public ----------------

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("fest ticketing backend is running"))
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to decode request body: %v", err))
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result, err := h.Service.Reserve(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		h.writeError(w, "Could not create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Order created", result))
}

func (h *Handler) CreatePartyOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePartyOrder: failed to decode request body: %v", err))
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result, err := h.Service.ReserveParty(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePartyOrder: %v", err))
		h.writeError(w, "Could not create party order", err)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Party order created", result))
}

// VerifyPayment is the gateway webhook endpoint. The body is read raw
// and handed to the reconciler untouched; parsing it here would break
// signature verification.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("VerifyPayment: failed to read body: %v", err))
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not read request body", err.Error()))
		return
	}

	err = h.Reconciler.Reconcile(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		var serr *webhook.SignatureError
		if errors.As(err, &serr) {
			h.Logger.Warn("API", "VerifyPayment: signature verification failed")
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid signature", err.Error()))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("VerifyPayment: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not process webhook", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Webhook processed", nil))
}

func (h *Handler) UserTickets(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	groups, err := h.Service.UserTickets(r.Context(), email)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UserTickets: %v", err))
		h.writeError(w, "Could not fetch tickets", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Tickets fetched", groups))
}

func (h *Handler) TotalSold(w http.ResponseWriter, r *http.Request) {
	sold, err := h.Service.TotalSold(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TotalSold: %v", err))
		h.writeError(w, "Could not count sold tickets", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Total sold", map[string]int{"totalSold": sold}))
}

func (h *Handler) EarlyBirdStatus(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.Service.EarlyBirdStatus(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("EarlyBirdStatus: %v", err))
		h.writeError(w, "Could not check early-bird slots", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Early-bird status", map[string]int{"remaining": remaining}))
}

// ---------------- admin ----------------

type adminRequest struct {
	Secret string `json:"secret"`
}

type offlineOrderRequest struct {
	orders.PurchaseRequest
	Secret string `json:"secret"`
}

func (h *Handler) authorized(w http.ResponseWriter, secret string) bool {
	if h.AdminSecret == "" || secret != h.AdminSecret {
		h.Logger.Warn("ADMIN", "Rejected request with bad admin secret")
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "invalid admin secret"))
		return false
	}
	return true
}

func (h *Handler) CreateOfflineOrder(w http.ResponseWriter, r *http.Request) {
	var req offlineOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if !h.authorized(w, req.Secret) {
		return
	}

	result, err := h.Service.ReserveOffline(r.Context(), req.PurchaseRequest)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOfflineOrder: %v", err))
		h.writeError(w, "Could not create offline order", err)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Offline order created", result))
}

func (h *Handler) decodeAdmin(w http.ResponseWriter, r *http.Request) bool {
	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return false
	}
	return h.authorized(w, req.Secret)
}

func (h *Handler) ConfirmOffline(w http.ResponseWriter, r *http.Request) {
	if !h.decodeAdmin(w, r) {
		return
	}
	orderID := chi.URLParam(r, "orderId")

	if err := h.Service.ConfirmOfflineOrder(r.Context(), orderID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmOffline: %v", err))
		h.writeError(w, "Could not confirm offline order", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Offline order confirmed", nil))
}

func (h *Handler) ResendEmail(w http.ResponseWriter, r *http.Request) {
	if !h.decodeAdmin(w, r) {
		return
	}
	orderID := chi.URLParam(r, "orderId")

	if err := h.Service.ResendConfirmation(r.Context(), orderID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ResendEmail: %v", err))
		h.writeError(w, "Could not resend confirmation", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Confirmation re-sent", nil))
}

func (h *Handler) ResendReminder(w http.ResponseWriter, r *http.Request) {
	if !h.decodeAdmin(w, r) {
		return
	}
	orderID := chi.URLParam(r, "orderId")

	if err := h.Service.ResendOfflineReminder(r.Context(), orderID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ResendReminder: %v", err))
		h.writeError(w, "Could not resend reminder", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Reminder re-sent", nil))
}

func (h *Handler) SendBulkReminders(w http.ResponseWriter, r *http.Request) {
	if !h.decodeAdmin(w, r) {
		return
	}

	sent, err := h.Service.BulkSendOfflineReminders(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SendBulkReminders: %v", err))
		h.writeError(w, "Could not send reminders", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Reminders sent", map[string]int{"sent": sent}))
}
