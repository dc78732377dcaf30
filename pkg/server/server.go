package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"multiwallet/pkg/accounts"
	"multiwallet/pkg/logger"
	"multiwallet/pkg/models"
	"multiwallet/pkg/wallet"
	"multiwallet/pkg/watcher"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// message is the envelope of every websocket frame.
type message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type balanceMessage struct {
	Chain      models.Chain `json:"chain"`
	Address    string       `json:"address"`
	Balance    string       `json:"balance,omitempty"`
	FailedRPCs []string     `json:"failedRpcs,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type activeRequest struct {
	Ethereum string `json:"ethereum"`
	Solana   string `json:"solana"`
}

type Server struct {
	store   *wallet.Store
	watcher *watcher.Watcher
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	mux     *http.ServeMux
}

func NewServer(store *wallet.Store, w *watcher.Watcher) *Server {
	s := &Server{
		store:   store,
		watcher: w,
		clients: make(map[*websocket.Conn]bool),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/accounts", s.handleAccounts)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/active", s.handleActive)
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) Start(port int) error {
	go s.listenToStore()
	go s.listenToWatcher()

	logger.Server.Info().Int("port", port).Msg("API server listening")
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.mux)
}

func (s *Server) pairs() []models.WalletPair {
	return accounts.CompileInactiveAddresses(
		s.store.InactiveEthereumAddresses(),
		s.store.InactiveSolanaAddresses(),
		s.store.ActiveEthereumAddress(),
		s.store.ActiveSolanaAddress(),
	)
}

func (s *Server) status() map[string]interface{} {
	return map[string]interface{}{
		"accounts": s.pairs(),
		"balances": s.watcher.GetBalances(),
		"prices":   s.watcher.GetPrices(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.pairs())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ethereum == "" && req.Solana == "" {
		writeError(w, http.StatusBadRequest, "ethereum or solana address required")
		return
	}

	pair, ok := matchPair(s.pairs(), req)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("no account pair matches ethereum %q solana %q", req.Ethereum, req.Solana))
		return
	}

	err := s.store.Dispatch(wallet.SetActiveAccount{
		Ethereum: pair.WalletDetails.Ethereum,
		Solana:   pair.WalletDetails.Solana,
	})
	switch {
	case errors.Is(err, wallet.ErrUnknownAddress):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		// The state changed but saving it failed.
		logger.Server.Error().Err(err).Msg("Set active account")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Server.Info().
		Str("ethereum", pair.WalletDetails.Ethereum.Address).
		Str("solana", pair.WalletDetails.Solana.Address).
		Msg("Active account changed")
	writeJSON(w, http.StatusOK, s.pairs())
}

// matchPair finds the listed pair holding every address named in req. A side
// left out of req matches anything.
func matchPair(pairs []models.WalletPair, req activeRequest) (models.WalletPair, bool) {
	for _, p := range pairs {
		if req.Ethereum != "" && !models.SameAddress(req.Ethereum, p.WalletDetails.Ethereum.Address) {
			continue
		}
		if req.Solana != "" && !models.SameAddress(req.Solana, p.WalletDetails.Solana.Address) {
			continue
		}
		return p, true
	}
	return models.WalletPair{}, false
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Server.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	// Send initial state before the connection can receive broadcasts.
	s.mu.Lock()
	err = conn.WriteJSON(message{Type: "initial", Data: s.status()})
	if err == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) listenToStore() {
	sub := s.store.Subscribe()
	defer s.store.Unsubscribe(sub)

	for event := range sub {
		s.broadcast(message{Type: string(event.Type), Data: s.pairs()})
	}
}

func (s *Server) listenToWatcher() {
	sub := s.watcher.Subscribe()
	defer s.watcher.Unsubscribe(sub)

	for event := range sub {
		s.broadcast(watcherMessage(event))
	}
}

func watcherMessage(event watcher.Event) message {
	msg := message{Type: string(event.Type), Data: event.Data}
	switch data := event.Data.(type) {
	case models.BalanceData:
		bm := balanceMessage{Chain: data.Chain, Address: data.Address, FailedRPCs: data.FailedRPCs}
		if data.Balance != nil {
			bm.Balance = data.Balance.Text('f', -1)
		}
		if data.Err != nil {
			bm.Error = data.Err.Error()
		}
		msg.Data = bm
	case models.PriceData:
		msg.Data = map[string]interface{}{"coinId": data.CoinID, "price": data.Price}
	}
	return msg
}

func (s *Server) broadcast(msg message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
