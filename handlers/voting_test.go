// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/clearballot/ledger"
	"github.com/danielhkuo/clearballot/models"
	"github.com/danielhkuo/clearballot/notify"
	"github.com/danielhkuo/clearballot/otp"
	"github.com/danielhkuo/clearballot/testutil"
)

func TestRequestCode(t *testing.T) {
	dbConn := testutil.SetupTestDB(t)
	defer dbConn.Close()

	cfg := testutil.GetTestConfig()
	led := ledger.New(dbConn, cfg.CodeSalt)
	issuer := otp.NewIssuer(dbConn, cfg.CodeSalt, cfg.CodeTTL)
	handler := NewVotingHandler(dbConn, cfg, led, issuer, notify.LogSender{})

	now := time.Now()
	testutil.SetTestWindow(t, dbConn, "Student Council", now.Add(-time.Minute), now.Add(time.Hour), true)
	testutil.CreateTestVoter(t, dbConn, "voter-1", "Ada", "ada@example.edu")

	t.Run("issues a code for an eligible voter", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/voters/voter-1/code", nil, nil)
		req.SetPathValue("id", "voter-1")
		w := httptest.NewRecorder()

		handler.RequestCode(w, req)

		testutil.AssertStatus(t, w, 200)
		var resp models.RequestCodeResponse
		testutil.AssertJSON(t, w, &resp)
		if !resp.Sent {
			t.Error("Expected sent=true")
		}
		if !resp.ExpiresAt.After(now) {
			t.Error("Expected a future expiry")
		}

		var count int
		if err := dbConn.QueryRow(`
			SELECT COUNT(*) FROM one_time_code
			WHERE voter_id = 'voter-1' AND consumed = FALSE AND invalidated = FALSE
		`).Scan(&count); err != nil {
			t.Fatalf("Failed to count codes: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 live code, got %d", count)
		}
	})

	t.Run("reissuing invalidates the prior live code", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/voters/voter-1/code", nil, nil)
		req.SetPathValue("id", "voter-1")
		w := httptest.NewRecorder()

		handler.RequestCode(w, req)
		testutil.AssertStatus(t, w, 200)

		var live int
		if err := dbConn.QueryRow(`
			SELECT COUNT(*) FROM one_time_code
			WHERE voter_id = 'voter-1' AND consumed = FALSE AND invalidated = FALSE
		`).Scan(&live); err != nil {
			t.Fatalf("Failed to count live codes: %v", err)
		}
		if live != 1 {
			t.Errorf("Expected exactly 1 live code after reissue, got %d", live)
		}

		var total int
		if err := dbConn.QueryRow(`
			SELECT COUNT(*) FROM one_time_code WHERE voter_id = 'voter-1'
		`).Scan(&total); err != nil {
			t.Fatalf("Failed to count codes: %v", err)
		}
		if total < 2 {
			t.Errorf("Expected the superseded code to be kept, got %d rows", total)
		}
	})

	t.Run("unknown voter", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/voters/ghost/code", nil, nil)
		req.SetPathValue("id", "ghost")
		w := httptest.NewRecorder()

		handler.RequestCode(w, req)

		testutil.AssertStatus(t, w, 404)
		testutil.AssertErrorCode(t, w, models.CodeUnknownVoter)
	})

	t.Run("voter who already voted gets no code", func(t *testing.T) {
		testutil.CreateTestVoter(t, dbConn, "voter-done", "Bob", "bob@example.edu")
		if _, err := dbConn.Exec(`UPDATE voter SET has_voted = TRUE, voted_at = $1 WHERE id = 'voter-done'`, time.Now()); err != nil {
			t.Fatalf("Failed to mark voter: %v", err)
		}

		req := testutil.MakeRequest("POST", "/voters/voter-done/code", nil, nil)
		req.SetPathValue("id", "voter-done")
		w := httptest.NewRecorder()

		handler.RequestCode(w, req)

		testutil.AssertStatus(t, w, 409)
		testutil.AssertErrorCode(t, w, models.CodeAlreadyVoted)

		var count int
		if err := dbConn.QueryRow(`SELECT COUNT(*) FROM one_time_code WHERE voter_id = 'voter-done'`).Scan(&count); err != nil {
			t.Fatalf("Failed to count codes: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected no code rows for a spent voter, got %d", count)
		}
	})
}

func TestRequestCodeOutsideWindow(t *testing.T) {
	dbConn := testutil.SetupTestDB(t)
	defer dbConn.Close()

	cfg := testutil.GetTestConfig()
	led := ledger.New(dbConn, cfg.CodeSalt)
	issuer := otp.NewIssuer(dbConn, cfg.CodeSalt, cfg.CodeTTL)
	handler := NewVotingHandler(dbConn, cfg, led, issuer, notify.LogSender{})

	testutil.CreateTestVoter(t, dbConn, "voter-1", "Ada", "ada@example.edu")

	tests := []struct {
		name         string
		startOffset  time.Duration
		endOffset    time.Duration
		enabled      bool
		expectedCode string
	}{
		{"window ended", -2 * time.Hour, -time.Hour, true, models.CodeWindowClosed},
		{"window upcoming", time.Hour, 2 * time.Hour, true, models.CodeWindowUpcoming},
		{"window disabled", -time.Hour, time.Hour, false, models.CodeWindowDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			testutil.SetTestWindow(t, dbConn, "Test", now.Add(tt.startOffset), now.Add(tt.endOffset), tt.enabled)

			req := testutil.MakeRequest("POST", "/voters/voter-1/code", nil, nil)
			req.SetPathValue("id", "voter-1")
			w := httptest.NewRecorder()

			handler.RequestCode(w, req)

			testutil.AssertStatus(t, w, 409)
			testutil.AssertErrorCode(t, w, tt.expectedCode)
		})
	}
}

func TestSubmitVote(t *testing.T) {
	dbConn := testutil.SetupTestDB(t)
	defer dbConn.Close()

	cfg := testutil.GetTestConfig()
	led := ledger.New(dbConn, cfg.CodeSalt)
	issuer := otp.NewIssuer(dbConn, cfg.CodeSalt, cfg.CodeTTL)
	handler := NewVotingHandler(dbConn, cfg, led, issuer, notify.LogSender{})

	now := time.Now()
	testutil.SetTestWindow(t, dbConn, "Student Council", now.Add(-time.Minute), now.Add(time.Hour), true)
	testutil.CreateTestVoter(t, dbConn, "voter-1", "Ada", "ada@example.edu")
	testutil.CreateTestCandidate(t, dbConn, "cand-a", "Alice", "Unity", now.Add(-time.Hour))
	testutil.CreateTestCandidate(t, dbConn, "cand-b", "Bob", "Progress", now.Add(-time.Hour))

	t.Run("valid vote", func(t *testing.T) {
		testutil.InsertTestCode(t, dbConn, cfg, "voter-1", "123456")

		body := models.SubmitVoteRequest{VoterID: "voter-1", CandidateID: "cand-a", Code: "123456"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 201)
		var resp models.SubmitVoteResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.VoteID == "" {
			t.Error("Expected a vote_id receipt")
		}

		var count int
		if err := dbConn.QueryRow(`SELECT vote_count FROM candidate WHERE id = 'cand-a'`).Scan(&count); err != nil {
			t.Fatalf("Failed to read tally: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected vote_count 1, got %d", count)
		}

		var hasVoted bool
		if err := dbConn.QueryRow(`SELECT has_voted FROM voter WHERE id = 'voter-1'`).Scan(&hasVoted); err != nil {
			t.Fatalf("Failed to read voter: %v", err)
		}
		if !hasVoted {
			t.Error("Expected has_voted=true")
		}
	})

	t.Run("replaying the consumed code", func(t *testing.T) {
		body := models.SubmitVoteRequest{VoterID: "voter-1", CandidateID: "cand-a", Code: "123456"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 409)
		testutil.AssertErrorCode(t, w, models.CodeAlreadyConsumed)

		var count int
		if err := dbConn.QueryRow(`SELECT vote_count FROM candidate WHERE id = 'cand-a'`).Scan(&count); err != nil {
			t.Fatalf("Failed to read tally: %v", err)
		}
		if count != 1 {
			t.Errorf("Replay must not change the tally; got %d", count)
		}
	})

	t.Run("second vote with a fresh code", func(t *testing.T) {
		// A spent voter cannot get a code via the API, but even a
		// directly planted one must lose to the has_voted guard.
		testutil.InsertTestCode(t, dbConn, cfg, "voter-1", "777777")

		body := models.SubmitVoteRequest{VoterID: "voter-1", CandidateID: "cand-b", Code: "777777"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 409)
		testutil.AssertErrorCode(t, w, models.CodeAlreadyVoted)

		var count int
		if err := dbConn.QueryRow(`SELECT vote_count FROM candidate WHERE id = 'cand-b'`).Scan(&count); err != nil {
			t.Fatalf("Failed to read tally: %v", err)
		}
		if count != 0 {
			t.Errorf("Rejected vote must not change the tally; got %d", count)
		}
	})
}

func TestSubmitVoteCredentialFailures(t *testing.T) {
	dbConn := testutil.SetupTestDB(t)
	defer dbConn.Close()

	cfg := testutil.GetTestConfig()
	led := ledger.New(dbConn, cfg.CodeSalt)
	issuer := otp.NewIssuer(dbConn, cfg.CodeSalt, cfg.CodeTTL)
	handler := NewVotingHandler(dbConn, cfg, led, issuer, notify.LogSender{})

	now := time.Now()
	testutil.SetTestWindow(t, dbConn, "Student Council", now.Add(-time.Minute), now.Add(time.Hour), true)
	testutil.CreateTestVoter(t, dbConn, "voter-1", "Ada", "ada@example.edu")
	testutil.CreateTestVoter(t, dbConn, "voter-2", "Grace", "grace@example.edu")
	testutil.CreateTestCandidate(t, dbConn, "cand-a", "Alice", "Unity", now.Add(-time.Hour))

	t.Run("no live code", func(t *testing.T) {
		body := models.SubmitVoteRequest{VoterID: "voter-1", CandidateID: "cand-a", Code: "000000"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 401)
		testutil.AssertErrorCode(t, w, models.CodeNoLiveCode)
	})

	t.Run("expired code", func(t *testing.T) {
		codeID := testutil.InsertTestCode(t, dbConn, cfg, "voter-1", "123456")
		if _, err := dbConn.Exec(`
			UPDATE one_time_code SET expires_at = $1 WHERE id = $2
		`, time.Now().Add(-time.Minute), codeID); err != nil {
			t.Fatalf("Failed to expire code: %v", err)
		}

		body := models.SubmitVoteRequest{VoterID: "voter-1", CandidateID: "cand-a", Code: "123456"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 401)
		testutil.AssertErrorCode(t, w, models.CodeExpired)
	})

	t.Run("mismatches count down then invalidate", func(t *testing.T) {
		testutil.InsertTestCode(t, dbConn, cfg, "voter-2", "123456")

		for i := 0; i < otp.MaxAttempts; i++ {
			body := models.SubmitVoteRequest{VoterID: "voter-2", CandidateID: "cand-a", Code: "999999"}
			req := testutil.MakeRequest("POST", "/votes", body, nil)
			w := httptest.NewRecorder()

			handler.SubmitVote(w, req)

			testutil.AssertStatus(t, w, 401)
			testutil.AssertErrorCode(t, w, models.CodeMismatch)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.RemainingAttempts == nil {
				t.Fatal("Expected remaining_attempts in mismatch response")
			}
			if want := otp.MaxAttempts - i - 1; *resp.RemainingAttempts != want {
				t.Errorf("Attempt %d: expected %d remaining, got %d", i+1, want, *resp.RemainingAttempts)
			}
		}

		// Exhausted: even the correct code is refused now.
		body := models.SubmitVoteRequest{VoterID: "voter-2", CandidateID: "cand-a", Code: "123456"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 401)
		testutil.AssertErrorCode(t, w, models.CodeAttemptsExceeded)
	})

	t.Run("superseded code is not a strike against the fresh one", func(t *testing.T) {
		testutil.CreateTestVoter(t, dbConn, "voter-3", "Lin", "lin@example.edu")
		oldID := testutil.InsertTestCode(t, dbConn, cfg, "voter-3", "111111")
		if _, err := dbConn.Exec(`
			UPDATE one_time_code SET invalidated = TRUE WHERE id = $1
		`, oldID); err != nil {
			t.Fatalf("Failed to supersede code: %v", err)
		}
		newID := testutil.InsertTestCode(t, dbConn, cfg, "voter-3", "222222")

		// The old code is well within its TTL but reads as no live
		// code, not as a mismatch.
		body := models.SubmitVoteRequest{VoterID: "voter-3", CandidateID: "cand-a", Code: "111111"}
		req := testutil.MakeRequest("POST", "/votes", body, nil)
		w := httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 401)
		testutil.AssertErrorCode(t, w, models.CodeNoLiveCode)

		var attempts int
		if err := dbConn.QueryRow(`
			SELECT attempts FROM one_time_code WHERE id = $1
		`, newID).Scan(&attempts); err != nil {
			t.Fatalf("Failed to read attempts: %v", err)
		}
		if attempts != 0 {
			t.Errorf("Expected no strike against the fresh code, got %d attempts", attempts)
		}

		// Replaying the old code five times must not invalidate the
		// fresh one.
		for i := 0; i < otp.MaxAttempts; i++ {
			req := testutil.MakeRequest("POST", "/votes", body, nil)
			w := httptest.NewRecorder()
			handler.SubmitVote(w, req)
			testutil.AssertErrorCode(t, w, models.CodeNoLiveCode)
		}

		fresh := models.SubmitVoteRequest{VoterID: "voter-3", CandidateID: "cand-a", Code: "222222"}
		req = testutil.MakeRequest("POST", "/votes", fresh, nil)
		w = httptest.NewRecorder()

		handler.SubmitVote(w, req)

		testutil.AssertStatus(t, w, 201)
	})
}

func TestLiveCodeUniqueness(t *testing.T) {
	dbConn := testutil.SetupTestDB(t)
	defer dbConn.Close()

	cfg := testutil.GetTestConfig()
	testutil.CreateTestVoter(t, dbConn, "voter-1", "Ada", "ada@example.edu")
	testutil.InsertTestCode(t, dbConn, cfg, "voter-1", "111111")

	_, err := dbConn.Exec(`
		INSERT INTO one_time_code (id, voter_id, code_hash, issued_at, expires_at, consumed, invalidated, attempts)
		VALUES ('second-live', 'voter-1', 'deadbeef', $1, $2, FALSE, FALSE, 0)
	`, time.Now(), time.Now().Add(10*time.Minute))
	if err == nil {
		t.Fatal("Expected the live-code index to reject a second live row")
	}

	// A superseded row does not collide with a fresh one.
	if _, err := dbConn.Exec(`
		UPDATE one_time_code SET invalidated = TRUE WHERE voter_id = 'voter-1'
	`); err != nil {
		t.Fatalf("Failed to supersede code: %v", err)
	}
	testutil.InsertTestCode(t, dbConn, cfg, "voter-1", "222222")
}

func TestSubmitVoteValidation(t *testing.T) {
	dbConn := testutil.SetupTestDB(t)
	defer dbConn.Close()

	cfg := testutil.GetTestConfig()
	led := ledger.New(dbConn, cfg.CodeSalt)
	issuer := otp.NewIssuer(dbConn, cfg.CodeSalt, cfg.CodeTTL)
	handler := NewVotingHandler(dbConn, cfg, led, issuer, notify.LogSender{})

	tests := []struct {
		name string
		body models.SubmitVoteRequest
	}{
		{"missing voter", models.SubmitVoteRequest{CandidateID: "c", Code: "123456"}},
		{"missing candidate", models.SubmitVoteRequest{VoterID: "v", Code: "123456"}},
		{"short code", models.SubmitVoteRequest{VoterID: "v", CandidateID: "c", Code: "123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/votes", tt.body, nil)
			w := httptest.NewRecorder()

			handler.SubmitVote(w, req)

			testutil.AssertStatus(t, w, 400)
		})
	}
}
