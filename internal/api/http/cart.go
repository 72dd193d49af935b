package http

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/api/dto"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/ledger"
	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
)

// failCheckout difere de fail num único ponto: saldo insuficiente no
// checkout é problema do pedido como um todo, não conflito com estado
// existente. 400, não 409.
func (s *Server) failCheckout(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repo.ErrInsufficientFunds) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	s.fail(w, r, err)
}

// userKey identifica o dono do carrinho: id ou email via query "user".
func userKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.URL.Query().Get("user"))
	if key == "" {
		return "", &betting.ValidationError{Fields: []string{"user"}}
	}
	return key, nil
}

func (s *Server) cartAdd(w http.ResponseWriter, r *http.Request) {
	key, err := userKey(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req dto.CartItemRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Bet.Stake <= 0 {
		s.fail(w, r, &betting.ValidationError{Fields: []string{"bet.stake"}})
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	item, err := s.cart.Add(ctx, key, cartSubmission(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) cartList(w http.ResponseWriter, r *http.Request) {
	key, err := userKey(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	items, err := s.cart.Items(ctx, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var total int64
	for _, item := range items {
		total += item.StakeCents
	}
	writeJSON(w, http.StatusOK, dto.CartResponse{Items: items, Total: model.CentsToFloat(total)})
}

func (s *Server) cartUpdate(w http.ResponseWriter, r *http.Request) {
	key, err := userKey(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req dto.CartItemRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Bet.Stake <= 0 {
		s.fail(w, r, &betting.ValidationError{Fields: []string{"bet.stake"}})
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	item, err := s.cart.Update(ctx, key, r.PathValue("id"), cartSubmission(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) cartRemove(w http.ResponseWriter, r *http.Request) {
	key, err := userKey(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	if err := s.cart.Remove(ctx, key, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cartClear(w http.ResponseWriter, r *http.Request) {
	key, err := userKey(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	if err := s.cart.Clear(ctx, key); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cartCheckout valida todos os itens, faz um único débito do total e
// persiste o lote. Qualquer item inválido aborta o checkout inteiro antes
// de tocar o saldo.
func (s *Server) cartCheckout(w http.ResponseWriter, r *http.Request) {
	key, err := userKey(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	subs, err := s.cart.Submissions(ctx, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(subs) == 0 {
		s.fail(w, r, ledger.ErrEmptyCheckout)
		return
	}

	drafts := make([]*model.Bet, 0, len(subs))
	for i := range subs {
		setIdentity(&subs[i], key)
		draft, err := s.validator.Validate(ctx, subs[i])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		drafts = append(drafts, draft)
	}

	ids, err := s.ledger.Checkout(ctx, drafts)
	if err != nil {
		s.failCheckout(w, r, err)
		return
	}
	if err := s.cart.Clear(ctx, key); err != nil {
		s.log.Warn("cart clear after checkout failed", zap.String("user", key), zap.Error(err))
	}

	for i, draft := range drafts {
		draft.ID = ids[i]
		s.prop.BetUpserted(ctx, draft)
		s.publishBetPlaced(r, draft)
	}
	if s.OnCheckout != nil {
		s.OnCheckout(len(ids))
	}

	writeJSON(w, http.StatusCreated, dto.CheckoutResponse{BetIDs: ids, Placed: len(ids)})
}

func cartSubmission(req dto.CartItemRequest) betting.Submission {
	sub := betting.Submission{
		Choice:     req.Bet.Choice,
		Team:       req.Bet.Team,
		Score:      req.Bet.Score,
		StakeCents: model.CentsFromFloat(req.Bet.Stake),
		Odds:       req.Bet.Odds,
	}
	sub.Event.Team1 = req.Event.Team1
	sub.Event.Team2 = req.Event.Team2
	sub.Event.Type = req.Event.Type
	sub.Event.Date = req.Event.Date
	return sub
}

// setIdentity preenche a identidade do dono do carrinho na submissão.
func setIdentity(sub *betting.Submission, key string) {
	if strings.Contains(key, "@") {
		sub.UserEmail = key
		return
	}
	sub.UserID = key
}
