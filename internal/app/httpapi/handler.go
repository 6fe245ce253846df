// Package httpapi exposes the platform over HTTP/JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/regenfi/platform/internal/app"
	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/fee"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/domain/wallet"
	"github.com/regenfi/platform/internal/app/services/review"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

// previewRate throttles the unauthenticated fee-preview endpoint per caller.
const (
	previewRatePerSec = 5
	previewBurst      = 10
)

// Handler serves the HTTP API.
type Handler struct {
	app       *app.Application
	jwtSecret []byte
	auditLog  *AuditLog
	preview   *keyedLimiter
	log       *logger.Logger
}

// NewHandler creates the handler. auditLog may be nil to disable auditing.
func NewHandler(application *app.Application, jwtSecret []byte, auditLog *AuditLog, log *logger.Logger) *Handler {
	return &Handler{
		app:       application,
		jwtSecret: jwtSecret,
		auditLog:  auditLog,
		preview:   newKeyedLimiter(rate.Limit(previewRatePerSec), previewBurst),
		log:       log,
	}
}

// Routes builds the full route table wrapped in metrics and audit middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.app.Metrics.Handler())

	mux.HandleFunc("POST /api/v1/accounts", h.handleRegister)
	mux.HandleFunc("GET /api/v1/accounts/me", h.authenticate(h.handleMe))
	mux.HandleFunc("GET /api/v1/fees/preview", h.rateLimit(h.preview, h.handleFeePreview))

	mux.HandleFunc("POST /api/v1/regenerator/bank-deposits", h.authenticate(h.handleDepositInitiate))
	mux.HandleFunc("GET /api/v1/regenerator/bank-deposits", h.authenticate(h.handleDepositList))
	mux.HandleFunc("GET /api/v1/regenerator/bank-deposits/{id}", h.authenticate(h.handleDepositGet))
	mux.HandleFunc("POST /api/v1/regenerator/bank-deposits/{id}/proof", h.authenticate(h.handleDepositProof))

	mux.HandleFunc("POST /api/v1/primer/contributions", h.authenticate(h.handleContributionInitiate))
	mux.HandleFunc("GET /api/v1/primer/contributions", h.authenticate(h.handleContributionList))
	mux.HandleFunc("GET /api/v1/primer/contributions/{id}", h.authenticate(h.handleContributionGet))
	mux.HandleFunc("POST /api/v1/primer/contributions/{id}/proof", h.authenticate(h.handleContributionProof))

	mux.HandleFunc("GET /api/v1/investments/holdings", h.authenticate(h.handleHoldingsList))
	mux.HandleFunc("POST /api/v1/investments/redemptions", h.authenticate(h.handleRedemptionRequest))
	mux.HandleFunc("GET /api/v1/investments/redemptions", h.authenticate(h.handleRedemptionList))
	mux.HandleFunc("GET /api/v1/investments/redemptions/{id}", h.authenticate(h.handleRedemptionGet))

	mux.HandleFunc("POST /api/v1/wallet/activation", h.authenticate(h.handleActivationRequest))
	mux.HandleFunc("GET /api/v1/settings/bank-account", h.authenticate(h.handleBankAccountGet))

	mux.HandleFunc("PUT /api/v1/admin/settings/bank-account", h.requireAdmin(h.handleBankAccountPut))
	mux.HandleFunc("GET /api/v1/admin/review-queue", h.requireAdmin(h.handleReviewQueue))
	mux.HandleFunc("POST /api/v1/admin/review/{kind}/{id}/endorse", h.requireAdmin(h.handleEndorse))
	mux.HandleFunc("POST /api/v1/admin/review/{kind}/{id}/veto", h.requireAdmin(h.handleVeto))
	mux.HandleFunc("GET /api/v1/admin/deposits", h.requireAdmin(h.handleAdminDepositList))
	mux.HandleFunc("POST /api/v1/admin/deposits/{id}/approve", h.requireAdmin(h.handleAdminDepositApprove))
	mux.HandleFunc("POST /api/v1/admin/deposits/{id}/reject", h.requireAdmin(h.handleAdminDepositReject))
	mux.HandleFunc("GET /api/v1/admin/deposits/{id}/proof", h.requireAdmin(h.handleAdminDepositProof))
	mux.HandleFunc("GET /api/v1/admin/contributions", h.requireAdmin(h.handleAdminContributionList))
	mux.HandleFunc("POST /api/v1/admin/contributions/{id}/approve", h.requireAdmin(h.handleAdminContributionApprove))
	mux.HandleFunc("POST /api/v1/admin/contributions/{id}/reject", h.requireAdmin(h.handleAdminContributionReject))
	mux.HandleFunc("GET /api/v1/admin/contributions/{id}/proof", h.requireAdmin(h.handleAdminContributionProof))
	mux.HandleFunc("GET /api/v1/admin/wallet-activations", h.requireAdmin(h.handleAdminActivationList))
	mux.HandleFunc("POST /api/v1/admin/wallet-activations/{id}/approve", h.requireAdmin(h.handleAdminActivationApprove))
	mux.HandleFunc("POST /api/v1/admin/wallet-activations/{id}/reject", h.requireAdmin(h.handleAdminActivationReject))
	mux.HandleFunc("GET /api/v1/admin/redemptions", h.requireAdmin(h.handleAdminRedemptionList))
	mux.HandleFunc("POST /api/v1/admin/redemptions/{id}/approve", h.requireAdmin(h.handleAdminRedemptionApprove))
	mux.HandleFunc("POST /api/v1/admin/redemptions/{id}/reject", h.requireAdmin(h.handleAdminRedemptionReject))
	mux.HandleFunc("GET /api/v1/admin/accounts", h.requireAdmin(h.handleAccountList))
	mux.HandleFunc("DELETE /api/v1/admin/accounts/{id}", h.requireAdmin(h.handleAccountDelete))
	mux.HandleFunc("POST /api/v1/admin/accounts/{id}/kyc", h.requireAdmin(h.handleKYC))
	mux.HandleFunc("POST /api/v1/admin/holdings/credit", h.requireAdmin(h.handleHoldingCredit))
	mux.HandleFunc("GET /api/v1/admin/audit", h.requireAdmin(h.handleAuditTail))

	return h.app.Metrics.InstrumentHandler(h.audit(mux))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- accounts ---

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Owner string `json:"owner"`
		Email string `json:"email"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	acct, err := h.app.Accounts.Register(r.Context(), body.Owner, body.Email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse(acct))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	acct, err := h.app.Accounts.Get(r.Context(), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

func (h *Handler) handleKYC(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	acct, err := h.app.Accounts.SetKYCStatus(r.Context(), r.PathValue("id"), account.KYCStatus(body.Status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

func (h *Handler) handleAccountList(w http.ResponseWriter, r *http.Request) {
	accts, err := h.app.Accounts.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(accts))
	for _, acct := range accts {
		out = append(out, accountResponse(acct))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Accounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- fees ---

func (h *Handler) handleFeePreview(w http.ResponseWriter, r *http.Request) {
	product := fee.Product(r.URL.Query().Get("product"))
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be an integer")
		return
	}
	breakdown, err := h.app.Fees.Preview(product, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// --- deposits ---

func (h *Handler) handleDepositInitiate(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var body struct {
		Amount int64 `json:"amount"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	instr, err := h.app.Deposits.Initiate(r.Context(), id.AccountID, body.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"request":      depositResponse(instr.Request),
		"bank_account": bankAccountResponse(instr.BankAccount),
	})
}

func (h *Handler) handleDepositList(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reqs, err := h.app.Deposits.List(r.Context(), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, depositResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDepositGet(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	scope := id.AccountID
	if id.Role == RoleAdmin {
		scope = ""
	}
	req, err := h.app.Deposits.Get(r.Context(), r.PathValue("id"), scope)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse(req))
}

func (h *Handler) handleDepositProof(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	name, contentType, file, ok := h.readProofUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	req, err := h.app.Deposits.AttachProof(r.Context(), r.PathValue("id"), id.AccountID, name, contentType, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse(req))
}

func (h *Handler) handleAdminDepositList(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(w, r,
		string(deposit.StatusPending), string(deposit.StatusApproved),
		string(deposit.StatusRejected), string(deposit.StatusCompleted))
	if !ok {
		return
	}
	reqs, err := h.app.Deposits.ListByStatus(r.Context(), deposit.Status(status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, depositResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdminDepositApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	req, err := h.app.Deposits.Approve(r.Context(), r.PathValue("id"), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse(req))
}

func (h *Handler) handleAdminDepositReject(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reason, ok := h.rejectionReason(w, r)
	if !ok {
		return
	}
	req, err := h.app.Deposits.Reject(r.Context(), r.PathValue("id"), id.AccountID, reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse(req))
}

func (h *Handler) handleAdminDepositProof(w http.ResponseWriter, r *http.Request) {
	rc, req, err := h.app.Deposits.OpenProof(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer rc.Close()
	h.streamProof(w, req.ProofName, req.ProofContentType, rc)
}

// --- contributions ---

func (h *Handler) handleContributionInitiate(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var body struct {
		Amount int64 `json:"amount"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	instr, err := h.app.Contributions.Initiate(r.Context(), id.AccountID, body.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"request":      contributionResponse(instr.Request),
		"bank_account": bankAccountResponse(instr.BankAccount),
	})
}

func (h *Handler) handleContributionList(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reqs, err := h.app.Contributions.List(r.Context(), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, contributionResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleContributionGet(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	scope := id.AccountID
	if id.Role == RoleAdmin {
		scope = ""
	}
	req, err := h.app.Contributions.Get(r.Context(), r.PathValue("id"), scope)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contributionResponse(req))
}

func (h *Handler) handleContributionProof(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	name, contentType, file, ok := h.readProofUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	req, err := h.app.Contributions.AttachProof(r.Context(), r.PathValue("id"), id.AccountID, name, contentType, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contributionResponse(req))
}

func (h *Handler) handleAdminContributionList(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(w, r,
		string(contribution.StatusPending), string(contribution.StatusApproved),
		string(contribution.StatusRejected), string(contribution.StatusCompleted))
	if !ok {
		return
	}
	reqs, err := h.app.Contributions.ListByStatus(r.Context(), contribution.Status(status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, contributionResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdminContributionApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	req, err := h.app.Contributions.Approve(r.Context(), r.PathValue("id"), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contributionResponse(req))
}

func (h *Handler) handleAdminContributionReject(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reason, ok := h.rejectionReason(w, r)
	if !ok {
		return
	}
	req, err := h.app.Contributions.Reject(r.Context(), r.PathValue("id"), id.AccountID, reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contributionResponse(req))
}

func (h *Handler) handleAdminContributionProof(w http.ResponseWriter, r *http.Request) {
	rc, req, err := h.app.Contributions.OpenProof(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer rc.Close()
	h.streamProof(w, req.ProofName, req.ProofContentType, rc)
}

// --- holdings and redemptions ---

func (h *Handler) handleHoldingsList(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	hs, err := h.app.Holdings.List(r.Context(), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(hs))
	for _, hd := range hs {
		out = append(out, holdingResponse(hd))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleHoldingCredit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccountID   string `json:"account_id"`
		ProjectID   string `json:"project_id"`
		Liquid      int64  `json:"liquid_tokens"`
		Locked      int64  `json:"locked_tokens"`
		LockType    string `json:"lock_type"`
		NAVPerToken int64  `json:"nav_per_token"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	hd, err := h.app.Holdings.Credit(r.Context(), body.AccountID, body.ProjectID,
		body.Liquid, body.Locked, lockTypeFrom(body.LockType), body.NAVPerToken)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, holdingResponse(hd))
}

func (h *Handler) handleRedemptionRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var body struct {
		ProjectID string `json:"project_id"`
		Tokens    int64  `json:"tokens"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	red, err := h.app.Holdings.RequestRedemption(r.Context(), id.AccountID, body.ProjectID, body.Tokens)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, redemptionResponse(red))
}

func (h *Handler) handleRedemptionList(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reds, err := h.app.Holdings.ListRedemptions(r.Context(), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reds))
	for _, red := range reds {
		out = append(out, redemptionResponse(red))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRedemptionGet(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	scope := id.AccountID
	if id.Role == RoleAdmin {
		scope = ""
	}
	red, err := h.app.Holdings.GetRedemption(r.Context(), r.PathValue("id"), scope)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionResponse(red))
}

func (h *Handler) handleAdminRedemptionList(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(w, r,
		string(holding.RedemptionPending), string(holding.RedemptionApproved),
		string(holding.RedemptionRejected))
	if !ok {
		return
	}
	reds, err := h.app.Holdings.ListRedemptionsByStatus(r.Context(), holding.RedemptionStatus(status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reds))
	for _, red := range reds {
		out = append(out, redemptionResponse(red))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdminRedemptionApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	red, err := h.app.Holdings.ApproveRedemption(r.Context(), r.PathValue("id"), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionResponse(red))
}

func (h *Handler) handleAdminRedemptionReject(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reason, ok := h.rejectionReason(w, r)
	if !ok {
		return
	}
	red, err := h.app.Holdings.RejectRedemption(r.Context(), r.PathValue("id"), id.AccountID, reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionResponse(red))
}

// --- wallet activation ---

func (h *Handler) handleActivationRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var body struct {
		PublicKey string `json:"public_key"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	req, err := h.app.Wallets.RequestActivation(r.Context(), id.AccountID, body.PublicKey)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activationResponse(req))
}

func (h *Handler) handleAdminActivationList(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(w, r,
		string(wallet.StatusPending), string(wallet.StatusApproved), string(wallet.StatusRejected))
	if !ok {
		return
	}
	reqs, err := h.app.Wallets.ListByStatus(r.Context(), wallet.Status(status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]interface{}, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, activationResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdminActivationApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	req, err := h.app.Wallets.Approve(r.Context(), r.PathValue("id"), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activationResponse(req))
}

func (h *Handler) handleAdminActivationReject(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reason, ok := h.rejectionReason(w, r)
	if !ok {
		return
	}
	req, err := h.app.Wallets.Reject(r.Context(), r.PathValue("id"), id.AccountID, reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activationResponse(req))
}

// --- settings ---

func (h *Handler) handleBankAccountGet(w http.ResponseWriter, r *http.Request) {
	acct, err := h.app.Settings.BankAccount(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bankAccountResponse(acct))
}

func (h *Handler) handleBankAccountPut(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var body struct {
		BankName      string `json:"bank_name"`
		AccountName   string `json:"account_name"`
		AccountNumber string `json:"account_number"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	acct, err := h.app.Settings.SetBankAccount(r.Context(), settings.BankAccount{
		BankName:      body.BankName,
		AccountName:   body.AccountName,
		AccountNumber: body.AccountNumber,
	}, id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bankAccountResponse(acct))
}

// --- review ---

func (h *Handler) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Review.Queue(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []review.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleEndorse(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	decision, err := h.app.Review.Endorse(r.Context(), review.Kind(r.PathValue("kind")), r.PathValue("id"), id.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleVeto(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	reason, ok := h.rejectionReason(w, r)
	if !ok {
		return
	}
	if err := h.app.Review.Veto(r.Context(), review.Kind(r.PathValue("kind")), r.PathValue("id"), id.AccountID, reason); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) handleAuditTail(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}
	if h.auditLog == nil {
		writeJSON(w, http.StatusOK, []auditEntry{})
		return
	}
	writeJSON(w, http.StatusOK, h.auditLog.Tail(n))
}

// --- helpers ---

var allowedProofTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"application/pdf": true,
}

// readProofUpload extracts and validates the multipart proof file. The
// content type is sniffed from the payload, never trusted from the client.
func (h *Handler) readProofUpload(w http.ResponseWriter, r *http.Request) (name, contentType string, file io.ReadCloser, ok bool) {
	maxBytes := h.app.Fees.MaxProofBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+4096)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid or oversized multipart upload")
		return "", "", nil, false
	}
	f, header, err := r.FormFile("proof")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a proof file is required")
		return "", "", nil, false
	}
	if header.Size > maxBytes {
		f.Close()
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("proof exceeds %d bytes", maxBytes))
		return "", "", nil, false
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		writeError(w, http.StatusBadRequest, "unreadable proof file")
		return "", "", nil, false
	}
	sniffed := http.DetectContentType(head[:n])
	if !allowedProofTypes[sniffed] {
		f.Close()
		writeError(w, http.StatusUnsupportedMediaType, "proof must be a PNG, JPEG or PDF")
		return "", "", nil, false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		writeError(w, http.StatusInternalServerError, "could not rewind upload")
		return "", "", nil, false
	}
	return header.Filename, sniffed, f, true
}

func (h *Handler) streamProof(w http.ResponseWriter, name, contentType string, rc io.Reader) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).Warn("streaming proof failed")
	}
}

// statusParam reads the ?status= filter, defaulting to the pending queue.
// An unrecognized value is a client error, not an empty result set.
func statusParam(w http.ResponseWriter, r *http.Request, allowed ...string) (string, bool) {
	s := r.URL.Query().Get("status")
	if s == "" {
		return "pending", true
	}
	for _, a := range allowed {
		if s == a {
			return s, true
		}
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", s))
	return "", false
}

func (h *Handler) rejectionReason(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Reason string `json:"reason"`
	}
	if !h.decodeJSON(w, r, &body) {
		return "", false
	}
	return body.Reason, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps service-layer failures to HTTP statuses. Unknown
// records are 404; everything else the services return is a domain rule the
// caller violated.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateReference):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.WithError(err).Debug("request rejected")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
