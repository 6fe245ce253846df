package httpapi

import (
	"time"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/fee"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/domain/wallet"
)

type accountDTO struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	Email         string    `json:"email"`
	KYCStatus     string    `json:"kyc_status"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	WalletStatus  string    `json:"wallet_status"`
	NGNTSBalance  int64     `json:"ngnts_balance"`
	FundBalance   int64     `json:"fund_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

func accountResponse(a account.Account) accountDTO {
	return accountDTO{
		ID:            a.ID,
		Owner:         a.Owner,
		Email:         a.Email,
		KYCStatus:     string(a.KYCStatus),
		WalletAddress: a.WalletAddress,
		WalletStatus:  string(a.WalletStatus),
		NGNTSBalance:  a.NGNTSBalance,
		FundBalance:   a.FundBalance,
		CreatedAt:     a.CreatedAt,
	}
}

type fundingRequestDTO struct {
	ID              string        `json:"id"`
	AccountID       string        `json:"account_id"`
	Amount          int64         `json:"amount"`
	ReferenceCode   string        `json:"reference_code"`
	Breakdown       fee.Breakdown `json:"breakdown"`
	ProofName       string        `json:"proof_name,omitempty"`
	Status          string        `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	ReviewedBy      string        `json:"reviewed_by,omitempty"`
	TxHash          string        `json:"tx_hash,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

func depositResponse(r deposit.Request) fundingRequestDTO {
	dto := fundingRequestDTO{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Amount:          r.Amount,
		ReferenceCode:   r.ReferenceCode,
		Breakdown:       r.Breakdown,
		ProofName:       r.ProofName,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		ReviewedBy:      r.ReviewedBy,
		TxHash:          r.TxHash,
		CreatedAt:       r.CreatedAt,
	}
	if !r.CompletedAt.IsZero() {
		t := r.CompletedAt
		dto.CompletedAt = &t
	}
	return dto
}

func contributionResponse(r contribution.Request) fundingRequestDTO {
	dto := fundingRequestDTO{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Amount:          r.Amount,
		ReferenceCode:   r.ReferenceCode,
		Breakdown:       r.Breakdown,
		ProofName:       r.ProofName,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		ReviewedBy:      r.ReviewedBy,
		TxHash:          r.TxHash,
		CreatedAt:       r.CreatedAt,
	}
	if !r.CompletedAt.IsZero() {
		t := r.CompletedAt
		dto.CompletedAt = &t
	}
	return dto
}

type holdingDTO struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	TotalTokens  int64     `json:"total_tokens"`
	LiquidTokens int64     `json:"liquid_tokens"`
	LockedTokens int64     `json:"locked_tokens"`
	NAVPerToken  int64     `json:"nav_per_token"`
	LockType     string    `json:"lock_type"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func holdingResponse(h holding.Holding) holdingDTO {
	return holdingDTO{
		ID:           h.ID,
		ProjectID:    h.ProjectID,
		TotalTokens:  h.TotalTokens,
		LiquidTokens: h.LiquidTokens,
		LockedTokens: h.LockedTokens,
		NAVPerToken:  h.NAVPerToken,
		LockType:     string(h.LockType),
		UpdatedAt:    h.UpdatedAt,
	}
}

type redemptionDTO struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	Tokens          int64     `json:"tokens"`
	NAVPerToken     int64     `json:"nav_per_token"`
	PayoutAmount    int64     `json:"payout_amount"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func redemptionResponse(r holding.Redemption) redemptionDTO {
	return redemptionDTO{
		ID:              r.ID,
		ProjectID:       r.ProjectID,
		Tokens:          r.Tokens,
		NAVPerToken:     r.NAVPerToken,
		PayoutAmount:    r.PayoutAmount,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
	}
}

type activationDTO struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	PublicKey string    `json:"public_key"`
	Status    string    `json:"status"`
	GasFunded bool      `json:"gas_funded"`
	CreatedAt time.Time `json:"created_at"`
}

func activationResponse(r wallet.ActivationRequest) activationDTO {
	return activationDTO{
		ID:        r.ID,
		AccountID: r.AccountID,
		PublicKey: r.PublicKey,
		Status:    string(r.Status),
		GasFunded: r.GasFunded,
		CreatedAt: r.CreatedAt,
	}
}

type bankAccountDTO struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}

func bankAccountResponse(b settings.BankAccount) bankAccountDTO {
	return bankAccountDTO{
		BankName:      b.BankName,
		AccountName:   b.AccountName,
		AccountNumber: b.AccountNumber,
	}
}

func lockTypeFrom(raw string) holding.LockType {
	switch holding.LockType(raw) {
	case holding.LockGrant, holding.LockPermanent, holding.LockTimeLocked:
		return holding.LockType(raw)
	default:
		return holding.LockNone
	}
}
