package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"wagerchain/crypto"
	"wagerchain/native/casino"
	"wagerchain/native/games"
	"wagerchain/native/house"
	"wagerchain/native/referral"
	"wagerchain/services/casinod/archive"
)

const maxRequestBytes = 1 << 16

var (
	errBadRequest = errors.New("malformed request")
	errForbidden  = errors.New("caller is not the authority")
	errNoArchive  = errors.New("archive not configured")
)

func decode(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func caller(r *http.Request) [20]byte {
	id, _ := IdentityFromContext(r.Context())
	return id
}

func gameParam(r *http.Request) string { return games.Normalize(chi.URLParam(r, "game")) }

func roundParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: round id", errBadRequest)
	}
	return id, nil
}

// optionalIdentity parses an empty string as the zero identity.
func optionalIdentity(raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	id, err := crypto.ParseIdentity(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return id, nil
}

// fail writes err, treating request decoding problems as 400.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errForbidden):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errNoArchive):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, r, err)
	}
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type playRequest struct {
	Amount   uint64       `json:"amount"`
	Params   games.Params `json:"params"`
	Referrer string       `json:"referrer"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	referrer, err := optionalIdentity(req.Referrer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	settlement, err := s.node.Play(casino.PlayRequest{
		Player:   caller(r),
		Game:     gameParam(r),
		Amount:   req.Amount,
		Params:   req.Params,
		Referrer: referrer,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettlementView(settlement))
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.node.StartRound(games.Crash, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRoundView(round))
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	id, err := roundParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	round, err := s.node.Round(games.Crash, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundView(round))
}

type betRequest struct {
	Amount   uint64 `json:"amount"`
	Referrer string `json:"referrer"`
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	id, err := roundParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req betRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	referrer, err := optionalIdentity(req.Referrer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bet, err := s.node.PlaceBet(games.Crash, id, caller(r), req.Amount, referrer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBetView(bet))
}

func (s *Server) handleGetBet(w http.ResponseWriter, r *http.Request) {
	id, err := roundParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	player, err := crypto.ParseIdentity(chi.URLParam(r, "player"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	bet, err := s.node.PlayerBet(games.Crash, id, player)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBetView(bet))
}

func (s *Server) handleActivateRound(w http.ResponseWriter, r *http.Request) {
	id, err := roundParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	round, err := s.node.ActivateRound(games.Crash, id, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundView(round))
}

func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	id, err := roundParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// The payout multiplier comes from the round clock. minMultiplierBps only
	// refuses a cash out the clock has not reached yet.
	var req struct {
		MinMultiplierBps uint64 `json:"minMultiplierBps"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.node.CashOut(games.Crash, id, caller(r), req.MinMultiplierBps)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bet":          newBetView(res.Bet),
		"profitDelta":  res.Totals.ProfitDelta,
		"vaultBalance": res.Totals.VaultBalance,
	})
}

func (s *Server) handleEndRound(w http.ResponseWriter, r *http.Request) {
	id, err := roundParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.node.EndRound(games.Crash, id, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"round":           newRoundView(summary.Round),
		"losers":          summary.Losers,
		"lostVolume":      summary.LostVolume,
		"referralAccrual": summary.ReferralAccrual,
	})
}

func (s *Server) handleRegisterReferrer(w http.ResponseWriter, r *http.Request) {
	ref, err := s.node.RegisterReferrer(gameParam(r), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReferrerView(ref))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	amount, err := s.node.ClaimReferral(gameParam(r), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountRequest{Amount: amount})
}

func (s *Server) handleFundPool(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.node.FundReferralPool(gameParam(r), caller(r), req.Amount)
	s.respondHouse(w, r, h, err)
}

func (s *Server) handleReferrerStats(w http.ResponseWriter, r *http.Request) {
	owner, err := crypto.ParseIdentity(chi.URLParam(r, "owner"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	stats, err := s.node.ReferrerStats(gameParam(r), owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReferrerStatsView(stats))
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	h, err := s.node.Distribute(gameParam(r), caller(r))
	s.respondHouse(w, r, h, err)
}

func (s *Server) handleHouse(w http.ResponseWriter, r *http.Request) {
	stats, err := s.node.HouseStats(gameParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.SetVaultBalance(stats.House.Game, stats.VaultBalance)
	writeJSON(w, http.StatusOK, newStatsView(stats))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.node.Deposit(gameParam(r), caller(r), req.Amount)
	s.respondHouse(w, r, h, err)
}

func (s *Server) handleMaxBet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxBet uint64 `json:"maxBet"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.node.UpdateMaxBet(gameParam(r), caller(r), req.MaxBet)
	s.respondHouse(w, r, h, err)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MinBet                 *uint64 `json:"minBet"`
		MaxBet                 *uint64 `json:"maxBet"`
		JackpotContributionBps *uint64 `json:"jackpotContributionBps"`
		MinReserve             *uint64 `json:"minReserve"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.node.UpdateSettings(gameParam(r), caller(r), house.Settings{
		MinBet:                 req.MinBet,
		MaxBet:                 req.MaxBet,
		JackpotContributionBps: req.JackpotContributionBps,
		MinReserve:             req.MinReserve,
	})
	s.respondHouse(w, r, h, err)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	paused, err := s.node.TogglePause(gameParam(r), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.node.WithdrawProfit(gameParam(r), caller(r), req.Amount)
	s.respondHouse(w, r, h, err)
}

func (s *Server) handleJackpot(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.node.SeedJackpot(gameParam(r), caller(r), req.Amount)
	s.respondHouse(w, r, h, err)
}

func (s *Server) respondHouse(w http.ResponseWriter, r *http.Request, h *house.House, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newHouseView(h))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	balance, err := s.node.Balance(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"identity": identity(id), "balance": balance})
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := caller(r)
	balance, err := s.node.Faucet(id, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"identity": identity(id), "balance": balance})
}

func (s *Server) handleCommitment(w http.ResponseWriter, r *http.Request) {
	epoch, digest, err := s.node.Commitment()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"epoch": epoch, "commitment": hex.EncodeToString(digest[:])})
}

type revealView struct {
	Epoch      uint64 `json:"epoch"`
	Seed       string `json:"seed"`
	Commitment string `json:"commitment"`
}

func (s *Server) handleReveals(w http.ResponseWriter, r *http.Request) {
	reveals, err := s.node.Reveals()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]revealView, 0, len(reveals))
	for _, rv := range reveals {
		out = append(out, revealView{Epoch: rv.Epoch, Seed: hex.EncodeToString(rv.Seed[:]), Commitment: hex.EncodeToString(rv.Commitment[:])})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRotateSeed(w http.ResponseWriter, r *http.Request) {
	rv, err := s.node.RotateSeed(caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revealView{Epoch: rv.Epoch, Seed: hex.EncodeToString(rv.Seed[:]), Commitment: hex.EncodeToString(rv.Commitment[:])})
}

func (s *Server) handleModulePause(w http.ResponseWriter, r *http.Request) {
	if caller(r) != s.node.Authority() {
		s.fail(w, r, errForbidden)
		return
	}
	var req struct {
		Paused bool `json:"paused"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	module := strings.ToLower(chi.URLParam(r, "module"))
	switch module {
	case casino.ModuleName, house.ModuleName, referral.ModuleName:
	default:
		s.fail(w, r, fmt.Errorf("%w: unknown module %q", errBadRequest, module))
		return
	}
	s.node.Pauses().Set(module, req.Paused)
	s.log.Info("module pause updated", "module", module, "paused", req.Paused)
	writeJSON(w, http.StatusOK, map[string]interface{}{"module": module, "paused": req.Paused})
}

type exportRequest struct {
	Game  string    `json:"game"`
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if caller(r) != s.node.Authority() {
		s.fail(w, r, errForbidden)
		return
	}
	if s.exporter == nil {
		s.fail(w, r, errNoArchive)
		return
	}
	var req exportRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.exporter.Export(r.Context(), s.cfg.ExportDir, archive.Filter{Game: req.Game, Since: req.Since, Until: req.Until})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
