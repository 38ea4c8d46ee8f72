package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olawanle/timebank-server/internal/api/testutils"
	"github.com/olawanle/timebank-server/internal/models"
)

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	requester, requesterToken := testutils.CreateTestUser(t, testCtx, "requester", 20.0)

	postReq := models.RequestServiceRequest{
		Title:       "Fence painting",
		Description: "Four hours of painting",
		Category:    "labour",
		Duration:    4.0,
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/services/request", postReq, testutils.AuthHeaders(requesterToken))
	require.Equal(t, http.StatusCreated, w.Code)
	var posted models.ServiceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posted))

	const numAcceptors = 8

	acceptors := make([]*models.User, numAcceptors)
	tokens := make([]string, numAcceptors)
	for i := range acceptors {
		acceptors[i], tokens[i] = testutils.CreateTestUser(t, testCtx, fmt.Sprintf("acceptor-%d", i), 10.0)
	}

	// All acceptors race for the same pending request
	codesChan := make(chan int, numAcceptors)
	var wg sync.WaitGroup

	for i := 0; i < numAcceptors; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()

			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPost,
				"/api/services/"+posted.ServiceID+"/accept",
				nil,
				testutils.AuthHeaders(token),
			)
			codesChan <- w.Code
		}(tokens[i])
	}

	wg.Wait()
	close(codesChan)

	wins, conflicts := 0, 0
	for code := range codesChan {
		switch code {
		case http.StatusOK:
			wins++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d from concurrent accept", code)
		}
	}
	assert.Equal(t, 1, wins, "exactly one acceptor should win the race")
	assert.Equal(t, numAcceptors-1, conflicts)

	// The requester is debited exactly once
	updatedRequester := testutils.GetUser(t, testCtx, requester.ID)
	assert.Equal(t, 16.0, updatedRequester.TokenBalance)
	assert.Equal(t, 4.0, updatedRequester.HoursSpent)

	transactions, err := testCtx.Repository.ListUserTransactions(context.Background(), requester.ID, 20)
	require.NoError(t, err)
	require.Len(t, transactions, 2) // seed bonus + the single transfer

	// Exactly one acceptor was credited, and it is the recorded provider
	svc, err := testCtx.Repository.GetService(context.Background(), posted.ServiceID)
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, models.ServiceStatusCompleted, svc.Status)
	require.NotNil(t, svc.ProviderID)

	credited := 0
	for _, acceptor := range acceptors {
		updated := testutils.GetUser(t, testCtx, acceptor.ID)
		if updated.TokenBalance == 14.0 {
			credited++
			assert.Equal(t, acceptor.ID, *svc.ProviderID)
			assert.Equal(t, 4.0, updated.HoursEarned)
		} else {
			assert.Equal(t, 10.0, updated.TokenBalance)
			assert.Equal(t, 0.0, updated.HoursEarned)
		}
	}
	assert.Equal(t, 1, credited)
}

func TestConcurrentOffersNeverOverdraw(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// The requester holds 5 tokens; each recorded offer costs 2, so at most
	// two of the racing providers can settle
	requester, _ := testutils.CreateTestUser(t, testCtx, "requester", 5.0)

	const numProviders = 6

	tokens := make([]string, numProviders)
	for i := range tokens {
		_, tokens[i] = testutils.CreateTestUser(t, testCtx, fmt.Sprintf("provider-%d", i), 10.0)
	}

	codesChan := make(chan int, numProviders)
	var wg sync.WaitGroup

	for i := 0; i < numProviders; i++ {
		wg.Add(1)
		go func(routineID int, token string) {
			defer wg.Done()

			offerReq := models.OfferServiceRequest{
				Title:             fmt.Sprintf("Errand run %d", routineID),
				Description:       "Two hours of errands",
				Category:          "misc",
				Duration:          2.0,
				RequesterUsername: "requester",
			}

			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPost,
				"/api/services/offer",
				offerReq,
				testutils.AuthHeaders(token),
			)
			codesChan <- w.Code
		}(i, tokens[i])
	}

	wg.Wait()
	close(codesChan)

	settled := 0
	for code := range codesChan {
		switch code {
		case http.StatusCreated:
			settled++
		case http.StatusUnprocessableEntity:
			// lost the race to the balance guard
		default:
			t.Errorf("unexpected status %d from concurrent offer", code)
		}
	}
	assert.LessOrEqual(t, settled, 2, "no more offers can settle than the balance covers")

	// The balance reflects exactly the settled offers and never goes negative
	updatedRequester := testutils.GetUser(t, testCtx, requester.ID)
	assert.Equal(t, 5.0-2.0*float64(settled), updatedRequester.TokenBalance)
	assert.GreaterOrEqual(t, updatedRequester.TokenBalance, 0.0)

	// One ledger entry per settled offer
	transactions, err := testCtx.Repository.ListUserTransactions(context.Background(), requester.ID, 20)
	require.NoError(t, err)
	assert.Len(t, transactions, settled+1) // seed bonus + settled transfers
}
