package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Simulator is an in-process Gateway. Transactions confirm after a fixed
// number of ConfirmTx polls so the confirmation path is exercised end to end.
type Simulator struct {
	mu            sync.Mutex
	pollsToSettle int
	pending       map[string]int
	minted        map[string]int64
	gasFunded     map[string]bool
}

var _ Gateway = (*Simulator)(nil)

// NewSimulator creates a simulator whose transactions settle after
// pollsToSettle confirmation checks. Zero means immediate settlement.
func NewSimulator(pollsToSettle int) *Simulator {
	if pollsToSettle < 0 {
		pollsToSettle = 0
	}
	return &Simulator{
		pollsToSettle: pollsToSettle,
		pending:       make(map[string]int),
		minted:        make(map[string]int64),
		gasFunded:     make(map[string]bool),
	}
}

func (s *Simulator) submit() string {
	tx := "simtx-" + uuid.NewString()
	s.pending[tx] = 0
	return tx
}

func (s *Simulator) Mint(_ context.Context, walletAddress, asset string, amount int64) (string, error) {
	if walletAddress == "" {
		return "", fmt.Errorf("mint: empty wallet address")
	}
	if amount <= 0 {
		return "", fmt.Errorf("mint: non-positive amount %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.minted[walletAddress+"/"+asset] += amount
	return s.submit(), nil
}

func (s *Simulator) FundGas(_ context.Context, walletAddress string) (string, error) {
	if walletAddress == "" {
		return "", fmt.Errorf("fund gas: empty wallet address")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gasFunded[walletAddress] {
		return "", fmt.Errorf("fund gas: wallet %s already funded", walletAddress)
	}
	s.gasFunded[walletAddress] = true
	return s.submit(), nil
}

func (s *Simulator) EstablishTrustlines(_ context.Context, walletAddress string, assets []string) (string, error) {
	if walletAddress == "" {
		return "", fmt.Errorf("establish trustlines: empty wallet address")
	}
	if len(assets) == 0 {
		return "", fmt.Errorf("establish trustlines: no assets")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit(), nil
}

func (s *Simulator) ConfirmTx(_ context.Context, txHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	polls, ok := s.pending[txHash]
	if !ok {
		return false, fmt.Errorf("confirm: unknown transaction %s", txHash)
	}
	polls++
	if polls > s.pollsToSettle {
		delete(s.pending, txHash)
		return true, nil
	}
	s.pending[txHash] = polls
	return false, nil
}

// MintedBalance reports the simulated balance for a wallet and asset. Test
// helper only.
func (s *Simulator) MintedBalance(walletAddress, asset string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minted[walletAddress+"/"+asset]
}

// GasFunded reports whether the wallet received its stipend. Test helper only.
func (s *Simulator) GasFunded(walletAddress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gasFunded[walletAddress]
}
