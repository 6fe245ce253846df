package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/domain/wallet"
	"github.com/regenfi/platform/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.DepositStore = (*Store)(nil)
var _ storage.ContributionStore = (*Store)(nil)
var _ storage.WalletRequestStore = (*Store)(nil)
var _ storage.HoldingStore = (*Store)(nil)
var _ storage.SettingsStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner, email, kyc_status, wallet_address, wallet_status, ngnts_balance, fund_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, acct.ID, acct.Owner, acct.Email, acct.KYCStatus, acct.WalletAddress, acct.WalletStatus, acct.NGNTSBalance, acct.FundBalance, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET owner = $2, email = $3, kyc_status = $4, wallet_address = $5, wallet_status = $6, ngnts_balance = $7, fund_balance = $8, updated_at = $9
		WHERE id = $1
	`, acct.ID, acct.Owner, acct.Email, acct.KYCStatus, acct.WalletAddress, acct.WalletStatus, acct.NGNTSBalance, acct.FundBalance, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, storage.ErrNotFound
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, email, kyc_status, wallet_address, wallet_status, ngnts_balance, fund_balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)

	var acct account.Account
	if err := row.Scan(&acct.ID, &acct.Owner, &acct.Email, &acct.KYCStatus, &acct.WalletAddress, &acct.WalletStatus, &acct.NGNTSBalance, &acct.FundBalance, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return account.Account{}, wrapNotFound(err)
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, email, kyc_status, wallet_address, wallet_status, ngnts_balance, fund_balance, created_at, updated_at
		FROM accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		var acct account.Account
		if err := rows.Scan(&acct.ID, &acct.Owner, &acct.Email, &acct.KYCStatus, &acct.WalletAddress, &acct.WalletStatus, &acct.NGNTSBalance, &acct.FundBalance, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- DepositStore -----------------------------------------------------------

const depositColumns = `id, account_id, amount, reference_code, platform_fee_bps, platform_fee_amount, gas_fee_amount, net_credited,
	proof_id, proof_name, proof_content_type, status, rejection_reason, tx_hash, reviewed_by, created_at, updated_at, completed_at`

func (s *Store) CreateDeposit(ctx context.Context, req deposit.Request) (deposit.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deposit_requests (`+depositColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, req.ID, req.AccountID, req.Amount, req.ReferenceCode,
		req.Breakdown.PlatformFeeBps, req.Breakdown.PlatformFeeAmount, req.Breakdown.GasFeeAmount, req.Breakdown.NetCredited,
		req.ProofID, req.ProofName, req.ProofContentType, req.Status, req.RejectionReason, req.TxHash, req.ReviewedBy,
		req.CreatedAt, req.UpdatedAt, toNullTime(req.CompletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return deposit.Request{}, storage.ErrDuplicateReference
		}
		return deposit.Request{}, err
	}
	return req, nil
}

func (s *Store) UpdateDeposit(ctx context.Context, req deposit.Request) (deposit.Request, error) {
	existing, err := s.GetDeposit(ctx, req.ID)
	if err != nil {
		return deposit.Request{}, err
	}

	req.AccountID = existing.AccountID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE deposit_requests
		SET proof_id = $2, proof_name = $3, proof_content_type = $4, status = $5, rejection_reason = $6, tx_hash = $7, reviewed_by = $8, updated_at = $9, completed_at = $10
		WHERE id = $1
	`, req.ID, req.ProofID, req.ProofName, req.ProofContentType, req.Status, req.RejectionReason, req.TxHash, req.ReviewedBy, req.UpdatedAt, toNullTime(req.CompletedAt))
	if err != nil {
		return deposit.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return deposit.Request{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) scanDeposit(row interface{ Scan(...interface{}) error }) (deposit.Request, error) {
	var (
		req         deposit.Request
		completedAt sql.NullTime
	)
	if err := row.Scan(&req.ID, &req.AccountID, &req.Amount, &req.ReferenceCode,
		&req.Breakdown.PlatformFeeBps, &req.Breakdown.PlatformFeeAmount, &req.Breakdown.GasFeeAmount, &req.Breakdown.NetCredited,
		&req.ProofID, &req.ProofName, &req.ProofContentType, &req.Status, &req.RejectionReason, &req.TxHash, &req.ReviewedBy,
		&req.CreatedAt, &req.UpdatedAt, &completedAt); err != nil {
		return deposit.Request{}, err
	}
	req.Breakdown.AmountRequested = req.Amount
	if completedAt.Valid {
		req.CompletedAt = completedAt.Time.UTC()
	}
	return req, nil
}

func (s *Store) GetDeposit(ctx context.Context, id string) (deposit.Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1
	`, id)

	req, err := s.scanDeposit(row)
	if err != nil {
		return deposit.Request{}, wrapNotFound(err)
	}
	return req, nil
}

func (s *Store) listDeposits(ctx context.Context, query string, args ...interface{}) ([]deposit.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []deposit.Request
	for rows.Next() {
		req, err := s.scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (s *Store) ListDeposits(ctx context.Context, accountID string) ([]deposit.Request, error) {
	return s.listDeposits(ctx, `
		SELECT `+depositColumns+` FROM deposit_requests
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at DESC
	`, accountID)
}

func (s *Store) ListDepositsByStatus(ctx context.Context, status deposit.Status) ([]deposit.Request, error) {
	return s.listDeposits(ctx, `
		SELECT `+depositColumns+` FROM deposit_requests
		WHERE status = $1
		ORDER BY created_at
	`, status)
}

func (s *Store) ApproveDeposit(ctx context.Context, req deposit.Request, creditNGNTS int64) (deposit.Request, error) {
	existing, err := s.GetDeposit(ctx, req.ID)
	if err != nil {
		return deposit.Request{}, err
	}

	req.AccountID = existing.AccountID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return deposit.Request{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE deposit_requests
		SET proof_id = $2, proof_name = $3, proof_content_type = $4, status = $5, rejection_reason = $6, tx_hash = $7, reviewed_by = $8, updated_at = $9, completed_at = $10
		WHERE id = $1
	`, req.ID, req.ProofID, req.ProofName, req.ProofContentType, req.Status, req.RejectionReason, req.TxHash, req.ReviewedBy, req.UpdatedAt, toNullTime(req.CompletedAt))
	if err != nil {
		return deposit.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return deposit.Request{}, storage.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE accounts SET ngnts_balance = ngnts_balance + $2, updated_at = $3 WHERE id = $1
	`, req.AccountID, creditNGNTS, req.UpdatedAt)
	if err != nil {
		return deposit.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return deposit.Request{}, storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return deposit.Request{}, err
	}
	return req, nil
}

// --- ContributionStore ------------------------------------------------------

const contributionColumns = `id, account_id, amount, reference_code, platform_fee_bps, platform_fee_amount, gas_fee_amount, net_credited,
	proof_id, proof_name, proof_content_type, status, rejection_reason, tx_hash, reviewed_by, created_at, updated_at, completed_at`

func (s *Store) CreateContribution(ctx context.Context, req contribution.Request) (contribution.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contribution_requests (`+contributionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, req.ID, req.AccountID, req.Amount, req.ReferenceCode,
		req.Breakdown.PlatformFeeBps, req.Breakdown.PlatformFeeAmount, req.Breakdown.GasFeeAmount, req.Breakdown.NetCredited,
		req.ProofID, req.ProofName, req.ProofContentType, req.Status, req.RejectionReason, req.TxHash, req.ReviewedBy,
		req.CreatedAt, req.UpdatedAt, toNullTime(req.CompletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return contribution.Request{}, storage.ErrDuplicateReference
		}
		return contribution.Request{}, err
	}
	return req, nil
}

func (s *Store) UpdateContribution(ctx context.Context, req contribution.Request) (contribution.Request, error) {
	existing, err := s.GetContribution(ctx, req.ID)
	if err != nil {
		return contribution.Request{}, err
	}

	req.AccountID = existing.AccountID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE contribution_requests
		SET proof_id = $2, proof_name = $3, proof_content_type = $4, status = $5, rejection_reason = $6, tx_hash = $7, reviewed_by = $8, updated_at = $9, completed_at = $10
		WHERE id = $1
	`, req.ID, req.ProofID, req.ProofName, req.ProofContentType, req.Status, req.RejectionReason, req.TxHash, req.ReviewedBy, req.UpdatedAt, toNullTime(req.CompletedAt))
	if err != nil {
		return contribution.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return contribution.Request{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) scanContribution(row interface{ Scan(...interface{}) error }) (contribution.Request, error) {
	var (
		req         contribution.Request
		completedAt sql.NullTime
	)
	if err := row.Scan(&req.ID, &req.AccountID, &req.Amount, &req.ReferenceCode,
		&req.Breakdown.PlatformFeeBps, &req.Breakdown.PlatformFeeAmount, &req.Breakdown.GasFeeAmount, &req.Breakdown.NetCredited,
		&req.ProofID, &req.ProofName, &req.ProofContentType, &req.Status, &req.RejectionReason, &req.TxHash, &req.ReviewedBy,
		&req.CreatedAt, &req.UpdatedAt, &completedAt); err != nil {
		return contribution.Request{}, err
	}
	req.Breakdown.AmountRequested = req.Amount
	if completedAt.Valid {
		req.CompletedAt = completedAt.Time.UTC()
	}
	return req, nil
}

func (s *Store) GetContribution(ctx context.Context, id string) (contribution.Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contributionColumns+` FROM contribution_requests WHERE id = $1
	`, id)

	req, err := s.scanContribution(row)
	if err != nil {
		return contribution.Request{}, wrapNotFound(err)
	}
	return req, nil
}

func (s *Store) listContributions(ctx context.Context, query string, args ...interface{}) ([]contribution.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contribution.Request
	for rows.Next() {
		req, err := s.scanContribution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (s *Store) ListContributions(ctx context.Context, accountID string) ([]contribution.Request, error) {
	return s.listContributions(ctx, `
		SELECT `+contributionColumns+` FROM contribution_requests
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at DESC
	`, accountID)
}

func (s *Store) ListContributionsByStatus(ctx context.Context, status contribution.Status) ([]contribution.Request, error) {
	return s.listContributions(ctx, `
		SELECT `+contributionColumns+` FROM contribution_requests
		WHERE status = $1
		ORDER BY created_at
	`, status)
}

func (s *Store) ApproveContribution(ctx context.Context, req contribution.Request, creditFund int64) (contribution.Request, error) {
	existing, err := s.GetContribution(ctx, req.ID)
	if err != nil {
		return contribution.Request{}, err
	}

	req.AccountID = existing.AccountID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return contribution.Request{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE contribution_requests
		SET proof_id = $2, proof_name = $3, proof_content_type = $4, status = $5, rejection_reason = $6, tx_hash = $7, reviewed_by = $8, updated_at = $9, completed_at = $10
		WHERE id = $1
	`, req.ID, req.ProofID, req.ProofName, req.ProofContentType, req.Status, req.RejectionReason, req.TxHash, req.ReviewedBy, req.UpdatedAt, toNullTime(req.CompletedAt))
	if err != nil {
		return contribution.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return contribution.Request{}, storage.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE accounts SET fund_balance = fund_balance + $2, updated_at = $3 WHERE id = $1
	`, req.AccountID, creditFund, req.UpdatedAt)
	if err != nil {
		return contribution.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return contribution.Request{}, storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return contribution.Request{}, err
	}
	return req, nil
}

// --- WalletRequestStore -----------------------------------------------------

func (s *Store) CreateActivationRequest(ctx context.Context, req wallet.ActivationRequest) (wallet.ActivationRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_activation_requests (id, account_id, public_key, status, rejection_reason, gas_funded, reviewed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, req.ID, req.AccountID, req.PublicKey, req.Status, req.RejectionReason, req.GasFunded, req.ReviewedBy, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	return req, nil
}

func (s *Store) UpdateActivationRequest(ctx context.Context, req wallet.ActivationRequest) (wallet.ActivationRequest, error) {
	existing, err := s.GetActivationRequest(ctx, req.ID)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}

	req.AccountID = existing.AccountID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE wallet_activation_requests
		SET public_key = $2, status = $3, rejection_reason = $4, gas_funded = $5, reviewed_by = $6, updated_at = $7
		WHERE id = $1
	`, req.ID, req.PublicKey, req.Status, req.RejectionReason, req.GasFunded, req.ReviewedBy, req.UpdatedAt)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wallet.ActivationRequest{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) GetActivationRequest(ctx context.Context, id string) (wallet.ActivationRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, public_key, status, rejection_reason, gas_funded, reviewed_by, created_at, updated_at
		FROM wallet_activation_requests
		WHERE id = $1
	`, id)

	var req wallet.ActivationRequest
	if err := row.Scan(&req.ID, &req.AccountID, &req.PublicKey, &req.Status, &req.RejectionReason, &req.GasFunded, &req.ReviewedBy, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return wallet.ActivationRequest{}, wrapNotFound(err)
	}
	return req, nil
}

func (s *Store) ListActivationRequests(ctx context.Context, status wallet.Status) ([]wallet.ActivationRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, public_key, status, rejection_reason, gas_funded, reviewed_by, created_at, updated_at
		FROM wallet_activation_requests
		WHERE $1 = '' OR status = $1
		ORDER BY created_at
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []wallet.ActivationRequest
	for rows.Next() {
		var req wallet.ActivationRequest
		if err := rows.Scan(&req.ID, &req.AccountID, &req.PublicKey, &req.Status, &req.RejectionReason, &req.GasFunded, &req.ReviewedBy, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (s *Store) GetPendingActivationByAccount(ctx context.Context, accountID string) (wallet.ActivationRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, public_key, status, rejection_reason, gas_funded, reviewed_by, created_at, updated_at
		FROM wallet_activation_requests
		WHERE account_id = $1 AND status = 'pending'
		ORDER BY created_at
		LIMIT 1
	`, accountID)

	var req wallet.ActivationRequest
	if err := row.Scan(&req.ID, &req.AccountID, &req.PublicKey, &req.Status, &req.RejectionReason, &req.GasFunded, &req.ReviewedBy, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return wallet.ActivationRequest{}, wrapNotFound(err)
	}
	return req, nil
}

// --- HoldingStore -----------------------------------------------------------

func (s *Store) CreateHolding(ctx context.Context, h holding.Holding) (holding.Holding, error) {
	if err := h.Validate(); err != nil {
		return holding.Holding{}, err
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (id, account_id, project_id, total_tokens, liquid_tokens, locked_tokens, nav_per_token, lock_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, h.ID, h.AccountID, h.ProjectID, h.TotalTokens, h.LiquidTokens, h.LockedTokens, h.NAVPerToken, h.LockType, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return holding.Holding{}, err
	}
	return h, nil
}

func (s *Store) UpdateHolding(ctx context.Context, h holding.Holding) (holding.Holding, error) {
	if err := h.Validate(); err != nil {
		return holding.Holding{}, err
	}
	existing, err := s.GetHolding(ctx, h.ID)
	if err != nil {
		return holding.Holding{}, err
	}

	h.AccountID = existing.AccountID
	h.ProjectID = existing.ProjectID
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE holdings
		SET total_tokens = $2, liquid_tokens = $3, locked_tokens = $4, nav_per_token = $5, lock_type = $6, updated_at = $7
		WHERE id = $1
	`, h.ID, h.TotalTokens, h.LiquidTokens, h.LockedTokens, h.NAVPerToken, h.LockType, h.UpdatedAt)
	if err != nil {
		return holding.Holding{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return holding.Holding{}, storage.ErrNotFound
	}
	return h, nil
}

func (s *Store) scanHolding(row interface{ Scan(...interface{}) error }) (holding.Holding, error) {
	var h holding.Holding
	err := row.Scan(&h.ID, &h.AccountID, &h.ProjectID, &h.TotalTokens, &h.LiquidTokens, &h.LockedTokens, &h.NAVPerToken, &h.LockType, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (s *Store) GetHolding(ctx context.Context, id string) (holding.Holding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, project_id, total_tokens, liquid_tokens, locked_tokens, nav_per_token, lock_type, created_at, updated_at
		FROM holdings WHERE id = $1
	`, id)
	h, err := s.scanHolding(row)
	if err != nil {
		return holding.Holding{}, wrapNotFound(err)
	}
	return h, nil
}

func (s *Store) GetHoldingByProject(ctx context.Context, accountID, projectID string) (holding.Holding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, project_id, total_tokens, liquid_tokens, locked_tokens, nav_per_token, lock_type, created_at, updated_at
		FROM holdings WHERE account_id = $1 AND project_id = $2
	`, accountID, projectID)
	h, err := s.scanHolding(row)
	if err != nil {
		return holding.Holding{}, wrapNotFound(err)
	}
	return h, nil
}

func (s *Store) listHoldings(ctx context.Context, query string, args ...interface{}) ([]holding.Holding, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []holding.Holding
	for rows.Next() {
		h, err := s.scanHolding(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (s *Store) ListHoldings(ctx context.Context, accountID string) ([]holding.Holding, error) {
	return s.listHoldings(ctx, `
		SELECT id, account_id, project_id, total_tokens, liquid_tokens, locked_tokens, nav_per_token, lock_type, created_at, updated_at
		FROM holdings WHERE account_id = $1 ORDER BY created_at
	`, accountID)
}

func (s *Store) ListAllHoldings(ctx context.Context) ([]holding.Holding, error) {
	return s.listHoldings(ctx, `
		SELECT id, account_id, project_id, total_tokens, liquid_tokens, locked_tokens, nav_per_token, lock_type, created_at, updated_at
		FROM holdings ORDER BY created_at
	`)
}

func (s *Store) CreateRedemption(ctx context.Context, r holding.Redemption) (holding.Redemption, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO redemption_requests (id, account_id, project_id, tokens, nav_per_token, payout_amount, status, rejection_reason, reviewed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, r.AccountID, r.ProjectID, r.Tokens, r.NAVPerToken, r.PayoutAmount, r.Status, r.RejectionReason, r.ReviewedBy, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return holding.Redemption{}, err
	}
	return r, nil
}

func (s *Store) UpdateRedemption(ctx context.Context, r holding.Redemption) (holding.Redemption, error) {
	existing, err := s.GetRedemption(ctx, r.ID)
	if err != nil {
		return holding.Redemption{}, err
	}

	r.AccountID = existing.AccountID
	r.ProjectID = existing.ProjectID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE redemption_requests
		SET status = $2, rejection_reason = $3, reviewed_by = $4, updated_at = $5
		WHERE id = $1
	`, r.ID, r.Status, r.RejectionReason, r.ReviewedBy, r.UpdatedAt)
	if err != nil {
		return holding.Redemption{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return holding.Redemption{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) scanRedemption(row interface{ Scan(...interface{}) error }) (holding.Redemption, error) {
	var r holding.Redemption
	err := row.Scan(&r.ID, &r.AccountID, &r.ProjectID, &r.Tokens, &r.NAVPerToken, &r.PayoutAmount, &r.Status, &r.RejectionReason, &r.ReviewedBy, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) GetRedemption(ctx context.Context, id string) (holding.Redemption, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, project_id, tokens, nav_per_token, payout_amount, status, rejection_reason, reviewed_by, created_at, updated_at
		FROM redemption_requests WHERE id = $1
	`, id)
	r, err := s.scanRedemption(row)
	if err != nil {
		return holding.Redemption{}, wrapNotFound(err)
	}
	return r, nil
}

func (s *Store) listRedemptions(ctx context.Context, query string, args ...interface{}) ([]holding.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []holding.Redemption
	for rows.Next() {
		r, err := s.scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) ListRedemptions(ctx context.Context, accountID string) ([]holding.Redemption, error) {
	return s.listRedemptions(ctx, `
		SELECT id, account_id, project_id, tokens, nav_per_token, payout_amount, status, rejection_reason, reviewed_by, created_at, updated_at
		FROM redemption_requests
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at DESC
	`, accountID)
}

func (s *Store) ListRedemptionsByStatus(ctx context.Context, status holding.RedemptionStatus) ([]holding.Redemption, error) {
	return s.listRedemptions(ctx, `
		SELECT id, account_id, project_id, tokens, nav_per_token, payout_amount, status, rejection_reason, reviewed_by, created_at, updated_at
		FROM redemption_requests
		WHERE status = $1
		ORDER BY created_at
	`, status)
}

func (s *Store) SettleRedemption(ctx context.Context, r holding.Redemption, h holding.Holding, payoutNGNTS int64) (holding.Redemption, error) {
	if err := h.Validate(); err != nil {
		return holding.Redemption{}, err
	}
	existing, err := s.GetRedemption(ctx, r.ID)
	if err != nil {
		return holding.Redemption{}, err
	}

	now := time.Now().UTC()
	r.AccountID = existing.AccountID
	r.ProjectID = existing.ProjectID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return holding.Redemption{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE holdings
		SET total_tokens = $2, liquid_tokens = $3, locked_tokens = $4, nav_per_token = $5, lock_type = $6, updated_at = $7
		WHERE id = $1
	`, h.ID, h.TotalTokens, h.LiquidTokens, h.LockedTokens, h.NAVPerToken, h.LockType, now)
	if err != nil {
		return holding.Redemption{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return holding.Redemption{}, storage.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE redemption_requests
		SET status = $2, rejection_reason = $3, reviewed_by = $4, updated_at = $5
		WHERE id = $1
	`, r.ID, r.Status, r.RejectionReason, r.ReviewedBy, now)
	if err != nil {
		return holding.Redemption{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return holding.Redemption{}, storage.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE accounts SET ngnts_balance = ngnts_balance + $2, updated_at = $3 WHERE id = $1
	`, r.AccountID, payoutNGNTS, now)
	if err != nil {
		return holding.Redemption{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return holding.Redemption{}, storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return holding.Redemption{}, err
	}
	return r, nil
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) GetBankAccount(ctx context.Context) (settings.BankAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT bank_name, account_name, account_number, updated_by, updated_at
		FROM platform_settings WHERE singleton = TRUE
	`)

	var acct settings.BankAccount
	if err := row.Scan(&acct.BankName, &acct.AccountName, &acct.AccountNumber, &acct.UpdatedBy, &acct.UpdatedAt); err != nil {
		return settings.BankAccount{}, wrapNotFound(err)
	}
	return acct, nil
}

func (s *Store) PutBankAccount(ctx context.Context, acct settings.BankAccount) (settings.BankAccount, error) {
	acct.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_settings (singleton, bank_name, account_name, account_number, updated_by, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (singleton) DO UPDATE
		SET bank_name = $1, account_name = $2, account_number = $3, updated_by = $4, updated_at = $5
	`, acct.BankName, acct.AccountName, acct.AccountNumber, acct.UpdatedBy, acct.UpdatedAt)
	if err != nil {
		return settings.BankAccount{}, err
	}
	return acct, nil
}
