package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olawanle/timebank-server/internal/api/testutils"
	"github.com/olawanle/timebank-server/internal/models"
)

// seedProposal inserts a proposal directly, bypassing the API, so tests can
// control the deadline and pre-existing tallies.
func seedProposal(t *testing.T, testCtx *testutils.TestContext, proposerID string, endsAt time.Time, votesFor, votesAgainst int) *models.Proposal {
	t.Helper()

	proposal := &models.Proposal{
		ID:           uuid.New().String(),
		Title:        "Seeded proposal",
		Description:  "Seeded for deadline tests",
		ProposerID:   proposerID,
		Status:       models.ProposalStatusActive,
		VotesFor:     votesFor,
		VotesAgainst: votesAgainst,
		CreatedAt:    time.Now().UTC(),
		EndsAt:       endsAt,
	}
	require.NoError(t, testCtx.Repository.CreateProposal(context.Background(), proposal))
	return proposal
}

func getProposal(t *testing.T, testCtx *testutils.TestContext, id string) *models.Proposal {
	t.Helper()
	proposal, err := testCtx.Repository.GetProposal(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	return proposal
}

func TestCreateProposal(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	user, token := testutils.CreateTestUser(t, testCtx, "proposer", 10.0)

	// Default voting period is seven days
	createReq := models.CreateProposalRequest{
		Title:       "Lower the welcome bonus",
		Description: "Reduce the starting balance to 5 tokens",
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals", createReq, testutils.AuthHeaders(token))
	require.Equal(t, http.StatusCreated, w.Code)

	var response models.ProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.ProposalID)

	proposal := getProposal(t, testCtx, response.ProposalID)
	assert.Equal(t, models.ProposalStatusActive, proposal.Status)
	assert.Equal(t, user.ID, proposal.ProposerID)
	assert.Equal(t, 0, proposal.VotesFor)
	assert.Equal(t, 0, proposal.VotesAgainst)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), proposal.EndsAt, time.Minute)

	// Explicit duration
	createReq.Days = 3
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals", createReq, testutils.AuthHeaders(token))
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	proposal = getProposal(t, testCtx, response.ProposalID)
	assert.WithinDuration(t, time.Now().UTC().Add(3*24*time.Hour), proposal.EndsAt, time.Minute)
}

func TestCastVote(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	proposer, proposerToken := testutils.CreateTestUser(t, testCtx, "proposer", 42.0)
	_, richToken := testutils.CreateTestUser(t, testCtx, "rich-voter", 500.0)
	_, poorToken := testutils.CreateTestUser(t, testCtx, "poor-voter", 7.0)

	createReq := models.CreateProposalRequest{
		Title:       "Weekly community call",
		Description: "Hold a call every Sunday",
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals", createReq, testutils.AuthHeaders(proposerToken))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.ProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	votePath := "/api/proposals/" + created.ProposalID + "/vote"

	// Voting power is the balance snapshot, but the tally counts ballots:
	// two "for" voters with very different balances each add exactly 1.
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteFor}, testutils.AuthHeaders(richToken))
	require.Equal(t, http.StatusOK, w.Code)
	var voteResp models.VoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &voteResp))
	assert.Equal(t, 500.0, voteResp.VotingPower)
	assert.Equal(t, 1, voteResp.VotesFor)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteFor}, testutils.AuthHeaders(poorToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &voteResp))
	assert.Equal(t, 7.0, voteResp.VotingPower)
	assert.Equal(t, 2, voteResp.VotesFor)
	assert.Equal(t, 0, voteResp.VotesAgainst)

	// An against vote lands in the other tally
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteAgainst}, testutils.AuthHeaders(proposerToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &voteResp))
	assert.Equal(t, 2, voteResp.VotesFor)
	assert.Equal(t, 1, voteResp.VotesAgainst)

	// Vote rows carry the per-ballot power snapshot
	vote, err := testCtx.Repository.GetVote(context.Background(), created.ProposalID, proposer.ID)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.VoteAgainst, vote.VoteType)
	assert.Equal(t, 42.0, vote.VotingPower)
}

func TestCastVoteDuplicate(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	_, proposerToken := testutils.CreateTestUser(t, testCtx, "proposer", 10.0)
	_, voterToken := testutils.CreateTestUser(t, testCtx, "voter", 10.0)

	createReq := models.CreateProposalRequest{
		Title:       "Plant more trees",
		Description: "Community garden expansion",
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals", createReq, testutils.AuthHeaders(proposerToken))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.ProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	votePath := "/api/proposals/" + created.ProposalID + "/vote"

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteFor}, testutils.AuthHeaders(voterToken))
	require.Equal(t, http.StatusOK, w.Code)

	// A second ballot from the same user is rejected, tallies unchanged
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteAgainst}, testutils.AuthHeaders(voterToken))
	assert.Equal(t, http.StatusConflict, w.Code)

	proposal := getProposal(t, testCtx, created.ProposalID)
	assert.Equal(t, 1, proposal.VotesFor)
	assert.Equal(t, 0, proposal.VotesAgainst)
}

func TestCastVoteAfterDeadline(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	proposer, _ := testutils.CreateTestUser(t, testCtx, "proposer", 10.0)
	_, lateToken := testutils.CreateTestUser(t, testCtx, "late-voter", 10.0)
	_, laterToken := testutils.CreateTestUser(t, testCtx, "later-voter", 10.0)

	// Expired proposal with three "for" ballots already on record
	proposal := seedProposal(t, testCtx, proposer.ID, time.Now().UTC().Add(-time.Hour), 3, 0)
	votePath := "/api/proposals/" + proposal.ID + "/vote"

	// The first attempt after the deadline resolves the proposal and is
	// itself rejected
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteAgainst}, testutils.AuthHeaders(lateToken))
	assert.Equal(t, http.StatusConflict, w.Code)

	resolved := getProposal(t, testCtx, proposal.ID)
	assert.Equal(t, models.ProposalStatusPassed, resolved.Status)
	assert.Equal(t, 3, resolved.VotesFor)
	assert.Equal(t, 0, resolved.VotesAgainst)

	// A later attempt is rejected without re-evaluating the outcome
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, votePath,
		models.CastVoteRequest{VoteType: models.VoteAgainst}, testutils.AuthHeaders(laterToken))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ProposalStatusPassed, getProposal(t, testCtx, proposal.ID).Status)
}

func TestCastVoteDeadlineTie(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	proposer, _ := testutils.CreateTestUser(t, testCtx, "proposer", 10.0)
	_, voterToken := testutils.CreateTestUser(t, testCtx, "voter", 10.0)

	// A tie resolves to rejected
	proposal := seedProposal(t, testCtx, proposer.ID, time.Now().UTC().Add(-time.Hour), 2, 2)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals/"+proposal.ID+"/vote",
		models.CastVoteRequest{VoteType: models.VoteFor}, testutils.AuthHeaders(voterToken))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ProposalStatusRejected, getProposal(t, testCtx, proposal.ID).Status)
}

func TestCastVoteValidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	proposer, _ := testutils.CreateTestUser(t, testCtx, "proposer", 10.0)
	_, voterToken := testutils.CreateTestUser(t, testCtx, "voter", 10.0)

	proposal := seedProposal(t, testCtx, proposer.ID, time.Now().UTC().Add(24*time.Hour), 0, 0)

	// Unknown proposal
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals/no-such-id/vote",
		models.CastVoteRequest{VoteType: models.VoteFor}, testutils.AuthHeaders(voterToken))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Invalid ballot direction is rejected at binding time
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals/"+proposal.ID+"/vote",
		map[string]string{"voteType": "maybe"}, testutils.AuthHeaders(voterToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	proposalAfter := getProposal(t, testCtx, proposal.ID)
	assert.Equal(t, 0, proposalAfter.VotesFor)
	assert.Equal(t, 0, proposalAfter.VotesAgainst)
}

func TestListProposals(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	_, token := testutils.CreateTestUser(t, testCtx, "proposer", 10.0)

	for _, title := range []string{"First", "Second"} {
		createReq := models.CreateProposalRequest{Title: title, Description: title}
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/proposals", createReq, testutils.AuthHeaders(token))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/proposals", nil, testutils.AuthHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)

	var list models.ProposalListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Proposals, 2)
	assert.Equal(t, "Second", list.Proposals[0].Title)
	assert.Equal(t, "First", list.Proposals[1].Title)
}
