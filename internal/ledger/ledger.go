package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/model"
)

var (
	ErrEmptyCheckout = errors.New("checkout requires at least one item")
	ErrMixedUsers    = errors.New("checkout items must belong to one user")
)

// BalanceStore é o único caminho de mutação de saldo. DebitIfEnough precisa
// ter semântica compare-and-swap: decrementar somente se balance >= amount,
// numa única operação condicional do store.
type BalanceStore interface {
	DebitIfEnough(ctx context.Context, userID string, amountCents int64) error
	Credit(ctx context.Context, userID string, amountCents int64) error
}

// BetStore persiste e remove registros de aposta.
type BetStore interface {
	Insert(ctx context.Context, bet *model.Bet) (string, error)
	DeleteBatch(ctx context.Context, ids []string) error
}

// Ledger executa a operação atômica "verifica saldo, debita stake, persiste
// aposta(s)", com rollback compensatório em falha parcial. É o único caminho
// pelo qual mudança de saldo e persistência de aposta acontecem juntas.
type Ledger struct {
	balances BalanceStore
	bets     BetStore
	log      *zap.Logger

	// OnRollbackFailure é chamado quando uma ação compensatória falha e o
	// estado fica para reconciliação manual (métrica)
	OnRollbackFailure func()
}

func New(balances BalanceStore, bets BetStore, log *zap.Logger) *Ledger {
	return &Ledger{balances: balances, bets: bets, log: log}
}

// PlaceBet debita o stake com o decremento condicional e insere a aposta
// PENDING. Se a inserção falhar depois do débito, o stake é estornado antes
// de retornar o erro: nenhum débito parcial sobrevive.
func (l *Ledger) PlaceBet(ctx context.Context, draft *model.Bet) (string, error) {
	if err := l.balances.DebitIfEnough(ctx, draft.UserID, draft.StakeCents); err != nil {
		return "", err
	}

	id, err := l.bets.Insert(ctx, draft)
	if err != nil {
		rctx, cancel := compensationCtx(ctx)
		defer cancel()
		if cerr := l.balances.Credit(rctx, draft.UserID, draft.StakeCents); cerr != nil {
			l.reportRollbackFailure("place_bet", draft.UserID, nil, draft.StakeCents, cerr)
		}
		return "", fmt.Errorf("insert bet: %w", err)
	}
	return id, nil
}

// Checkout efetiva N rascunhos de um mesmo usuário: soma os stakes, faz um
// único débito condicional do total e insere as apostas uma a uma. Qualquer
// falha de inserção desfaz tudo (apostas já inseridas removidas, total
// estornado) antes de retornar. All-or-nothing para o chamador, ainda que
// implementado como sequência de escritas não transacionais.
func (l *Ledger) Checkout(ctx context.Context, drafts []*model.Bet) ([]string, error) {
	if len(drafts) == 0 {
		return nil, ErrEmptyCheckout
	}
	userID := drafts[0].UserID
	var total int64
	for _, d := range drafts {
		if d.UserID != userID {
			return nil, ErrMixedUsers
		}
		total += d.StakeCents
	}

	if err := l.balances.DebitIfEnough(ctx, userID, total); err != nil {
		return nil, err
	}

	batchRef := uuid.NewString()
	inserted := make([]string, 0, len(drafts))
	for _, d := range drafts {
		d.BatchRef = batchRef
		id, err := l.bets.Insert(ctx, d)
		if err != nil {
			l.rollbackCheckout(ctx, userID, inserted, total)
			return nil, fmt.Errorf("checkout insert (batch %s): %w", batchRef, err)
		}
		inserted = append(inserted, id)
	}
	return inserted, nil
}

// SettleCredit aplica o lado financeiro do settlement: WON credita
// stake × odds; LOST não devolve nada (o stake já foi debitado na colocação).
func (l *Ledger) SettleCredit(ctx context.Context, bet *model.Bet, outcome model.BetStatus) error {
	if outcome != model.BetWon {
		return nil
	}
	payout := model.WinningsCents(bet.StakeCents, bet.Odds)
	if err := l.balances.Credit(ctx, bet.UserID, payout); err != nil {
		return fmt.Errorf("settle credit bet %s: %w", bet.ID, err)
	}
	return nil
}

// compensationTimeout limita as escritas compensatórias depois que o
// contexto do chamador deixou de valer.
const compensationTimeout = 5 * time.Second

// compensationCtx desacopla a compensação do deadline do chamador. O cenário
// típico de rollback é justamente o deadline estourando entre o débito e a
// inserção; reusar o contexto expirado tornaria o estorno impossível.
func compensationCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}

// rollbackCheckout desfaz um checkout parcialmente persistido. Falha de
// compensação é logada com ids e valores para reconciliação manual; o
// chamador ainda recebe o erro original do checkout.
func (l *Ledger) rollbackCheckout(ctx context.Context, userID string, inserted []string, total int64) {
	ctx, cancel := compensationCtx(ctx)
	defer cancel()
	if err := l.bets.DeleteBatch(ctx, inserted); err != nil {
		l.reportRollbackFailure("checkout_delete", userID, inserted, total, err)
	}
	if err := l.balances.Credit(ctx, userID, total); err != nil {
		l.reportRollbackFailure("checkout_refund", userID, inserted, total, err)
	}
}

func (l *Ledger) reportRollbackFailure(stage, userID string, ids []string, amount int64, err error) {
	l.log.Error("ledger rollback failed; manual reconciliation required",
		zap.String("stage", stage),
		zap.String("userId", userID),
		zap.Strings("betIds", ids),
		zap.Int64("amount_cents", amount),
		zap.Error(err),
	)
	if l.OnRollbackFailure != nil {
		l.OnRollbackFailure()
	}
}
