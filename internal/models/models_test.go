package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceStatusIsValid(t *testing.T) {
	for _, status := range []ServiceStatus{
		ServiceStatusPending, ServiceStatusConfirmed, ServiceStatusCompleted, ServiceStatusCancelled,
	} {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, ServiceStatus("done").IsValid())
	assert.False(t, ServiceStatus("").IsValid())
}

func TestServiceStatusTransitions(t *testing.T) {
	assert.True(t, ServiceStatusPending.CanTransitionTo(ServiceStatusCompleted))
	assert.True(t, ServiceStatusPending.CanTransitionTo(ServiceStatusConfirmed))
	assert.True(t, ServiceStatusPending.CanTransitionTo(ServiceStatusCancelled))
	assert.True(t, ServiceStatusConfirmed.CanTransitionTo(ServiceStatusCompleted))

	// Completed and cancelled are terminal
	for _, terminal := range []ServiceStatus{ServiceStatusCompleted, ServiceStatusCancelled} {
		for _, next := range []ServiceStatus{
			ServiceStatusPending, ServiceStatusConfirmed, ServiceStatusCompleted, ServiceStatusCancelled,
		} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}

	assert.False(t, ServiceStatusPending.CanTransitionTo(ServiceStatusPending))
}

func TestProposalStatusIsValid(t *testing.T) {
	for _, status := range []ProposalStatus{ProposalStatusActive, ProposalStatusPassed, ProposalStatusRejected} {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, ProposalStatus("open").IsValid())
}

func TestNewWalletAddress(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		addr := NewWalletAddress()
		assert.Len(t, addr, 42)
		assert.True(t, strings.HasPrefix(addr, "0x"))
		assert.False(t, seen[addr], "wallet addresses must be unique")
		seen[addr] = true
	}
}
