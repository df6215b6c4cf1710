// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/clearballot/archive"
	"github.com/danielhkuo/clearballot/cliparse"
	"github.com/danielhkuo/clearballot/handlers"
	"github.com/danielhkuo/clearballot/ledger"
	"github.com/danielhkuo/clearballot/middleware"
	"github.com/danielhkuo/clearballot/notify"
	"github.com/danielhkuo/clearballot/otp"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, sender notify.Sender) *http.ServeMux {
	mux := http.NewServeMux()

	// Wire the domain components once; handlers share them.
	led := ledger.New(db, cfg.CodeSalt)
	issuer := otp.NewIssuer(db, cfg.CodeSalt, cfg.CodeTTL)
	archiver := archive.NewManager(db, led, cfg.PositionTitles)

	electionHandler := handlers.NewElectionHandler(db, cfg, led, archiver)
	votingHandler := handlers.NewVotingHandler(db, cfg, led, issuer, sender)
	resultsHandler := handlers.NewResultsHandler(db, cfg, led, archiver)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election window lifecycle (admin operations)
	mux.HandleFunc("POST /election", middleware.WithLogging(electionHandler.SetWindow))
	mux.HandleFunc("PATCH /election", middleware.WithLogging(electionHandler.PatchWindow))
	mux.HandleFunc("POST /election/start", middleware.WithLogging(electionHandler.StartNow))
	mux.HandleFunc("POST /election/finalize", middleware.WithLogging(electionHandler.Finalize))
	mux.HandleFunc("GET /election/tally", middleware.WithLogging(electionHandler.Tally))

	// Voting operations (public)
	mux.HandleFunc("POST /voters/{id}/code", middleware.WithLogging(votingHandler.RequestCode))
	mux.HandleFunc("POST /votes", middleware.WithLogging(votingHandler.SubmitVote))

	// Read operations (public)
	mux.HandleFunc("GET /election", middleware.WithLogging(resultsHandler.GetStatus))
	mux.HandleFunc("GET /candidates", middleware.WithLogging(resultsHandler.GetCandidates))
	mux.HandleFunc("GET /voters/{id}", middleware.WithLogging(resultsHandler.GetVoterStatus))
	mux.HandleFunc("GET /history", middleware.WithLogging(resultsHandler.ListHistory))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clearballot API v1"))
	})

	return mux
}
