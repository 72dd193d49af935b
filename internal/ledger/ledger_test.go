package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/ledger"
	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
)

// fakeBalances reproduz a semântica compare-and-swap do decremento
// condicional do store primário.
type fakeBalances struct {
	mu        sync.Mutex
	balances  map[string]int64
	creditErr error
}

func (f *fakeBalances) DebitIfEnough(_ context.Context, userID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return repo.ErrInsufficientFunds
	}
	f.balances[userID] -= amount
	return nil
}

func (f *fakeBalances) Credit(ctx context.Context, userID string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.creditErr != nil {
		return f.creditErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
	return nil
}

func (f *fakeBalances) balance(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

type fakeBets struct {
	mu       sync.Mutex
	stored   map[string]*model.Bet
	seq      int
	failFrom int    // a partir desta inserção (1-based), Insert falha; 0 desliga
	expireOn int    // nesta inserção (1-based), expira o contexto antes de gravar
	expire   func() // cancel do contexto do chamador, usado com expireOn
}

func (f *fakeBets) Insert(ctx context.Context, bet *model.Bet) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if f.expireOn > 0 && f.seq >= f.expireOn && f.expire != nil {
		f.expire()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.failFrom > 0 && f.seq >= f.failFrom {
		return "", errors.New("store write failed")
	}
	id := fmt.Sprintf("bet-%d", f.seq)
	copied := *bet
	copied.ID = id
	f.stored[id] = &copied
	return id, nil
}

func (f *fakeBets) DeleteBatch(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.stored, id)
	}
	return nil
}

func (f *fakeBets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

func newFixture(balance int64) (*ledger.Ledger, *fakeBalances, *fakeBets) {
	balances := &fakeBalances{balances: map[string]int64{"u1": balance}}
	bets := &fakeBets{stored: map[string]*model.Bet{}}
	return ledger.New(balances, bets, zap.NewNop()), balances, bets
}

func draft(stake int64) *model.Bet {
	return &model.Bet{UserID: "u1", StakeCents: stake, Status: model.BetPending}
}

func TestPlaceBetDebitsOnce(t *testing.T) {
	led, balances, bets := newFixture(10000)

	id, err := led.PlaceBet(context.Background(), draft(3000))
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty bet id")
	}
	if got := balances.balance("u1"); got != 7000 {
		t.Errorf("balance = %d, want 7000", got)
	}
	if bets.count() != 1 {
		t.Errorf("stored bets = %d, want 1", bets.count())
	}
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	led, balances, bets := newFixture(1000)

	_, err := led.PlaceBet(context.Background(), draft(3000))
	if !errors.Is(err, repo.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if got := balances.balance("u1"); got != 1000 {
		t.Errorf("balance = %d, want untouched 1000", got)
	}
	if bets.count() != 0 {
		t.Errorf("stored bets = %d, want 0", bets.count())
	}
}

// Falha na inserção depois do débito estorna o stake: nenhum débito
// parcial sobrevive.
func TestPlaceBetRefundsOnInsertFailure(t *testing.T) {
	led, balances, bets := newFixture(10000)
	bets.failFrom = 1

	if _, err := led.PlaceBet(context.Background(), draft(3000)); err == nil {
		t.Fatal("want error from failed insert")
	}
	if got := balances.balance("u1"); got != 10000 {
		t.Errorf("balance = %d, want restored 10000", got)
	}
}

func TestPlaceBetRollbackFailureReported(t *testing.T) {
	led, balances, bets := newFixture(10000)
	bets.failFrom = 1
	balances.creditErr = errors.New("store unavailable")

	reported := false
	led.OnRollbackFailure = func() { reported = true }

	if _, err := led.PlaceBet(context.Background(), draft(3000)); err == nil {
		t.Fatal("want error from failed insert")
	}
	if !reported {
		t.Error("rollback failure not reported")
	}
}

// O deadline da requisição estoura entre o débito e a inserção. O estorno
// não pode correr no contexto expirado, senão ele falharia sempre que mais
// precisa funcionar.
func TestPlaceBetRefundsAfterContextExpires(t *testing.T) {
	led, balances, bets := newFixture(10000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bets.expireOn = 1
	bets.expire = cancel

	reported := false
	led.OnRollbackFailure = func() { reported = true }

	_, err := led.PlaceBet(ctx, draft(3000))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := balances.balance("u1"); got != 10000 {
		t.Errorf("balance = %d, want restored 10000", got)
	}
	if reported {
		t.Error("refund should succeed on a fresh context")
	}
}

// N requisições idênticas concorrentes: cada sucesso debita exatamente uma
// vez e o saldo nunca fica negativo.
func TestPlaceBetConcurrentDebits(t *testing.T) {
	led, balances, _ := newFixture(4000)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := led.PlaceBet(context.Background(), draft(3000)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("succeeded = %d, want exactly 1 with balance 4000 and stake 3000", succeeded)
	}
	if got := balances.balance("u1"); got != 1000 {
		t.Errorf("balance = %d, want 1000", got)
	}
}

func TestCheckoutSingleDebitSharedBatch(t *testing.T) {
	led, balances, bets := newFixture(10000)

	ids, err := led.Checkout(context.Background(), []*model.Bet{draft(2000), draft(3000), draft(1000)})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v, want 3", ids)
	}
	if got := balances.balance("u1"); got != 4000 {
		t.Errorf("balance = %d, want 4000", got)
	}

	ref := ""
	for _, b := range bets.stored {
		if ref == "" {
			ref = b.BatchRef
		}
		if b.BatchRef == "" || b.BatchRef != ref {
			t.Errorf("batchRef %q, want same non-empty ref for the whole batch", b.BatchRef)
		}
	}
}

func TestCheckoutEmpty(t *testing.T) {
	led, _, _ := newFixture(10000)
	if _, err := led.Checkout(context.Background(), nil); !errors.Is(err, ledger.ErrEmptyCheckout) {
		t.Errorf("got %v, want ErrEmptyCheckout", err)
	}
}

func TestCheckoutMixedUsers(t *testing.T) {
	led, balances, _ := newFixture(10000)

	other := draft(1000)
	other.UserID = "u2"
	_, err := led.Checkout(context.Background(), []*model.Bet{draft(2000), other})
	if !errors.Is(err, ledger.ErrMixedUsers) {
		t.Fatalf("got %v, want ErrMixedUsers", err)
	}
	if got := balances.balance("u1"); got != 10000 {
		t.Errorf("balance = %d, want untouched 10000", got)
	}
}

func TestCheckoutInsufficientTotal(t *testing.T) {
	led, balances, bets := newFixture(4000)

	_, err := led.Checkout(context.Background(), []*model.Bet{draft(3000), draft(2000)})
	if !errors.Is(err, repo.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if got := balances.balance("u1"); got != 4000 {
		t.Errorf("balance = %d, want untouched 4000", got)
	}
	if bets.count() != 0 {
		t.Errorf("stored bets = %d, want 0", bets.count())
	}
}

// Falha no meio do lote desfaz tudo: zero apostas persistidas e
// balance_after == balance_before.
func TestCheckoutRollbackOnPartialFailure(t *testing.T) {
	led, balances, bets := newFixture(10000)
	bets.failFrom = 3

	_, err := led.Checkout(context.Background(), []*model.Bet{draft(2000), draft(3000), draft(1000)})
	if err == nil {
		t.Fatal("want error from failed insert")
	}
	if got := balances.balance("u1"); got != 10000 {
		t.Errorf("balance = %d, want restored 10000", got)
	}
	if bets.count() != 0 {
		t.Errorf("stored bets = %d, want 0 after rollback", bets.count())
	}
}

func TestCheckoutRollbackAfterContextExpires(t *testing.T) {
	led, balances, bets := newFixture(10000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bets.expireOn = 3
	bets.expire = cancel

	reported := false
	led.OnRollbackFailure = func() { reported = true }

	_, err := led.Checkout(ctx, []*model.Bet{draft(2000), draft(3000), draft(1000)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := balances.balance("u1"); got != 10000 {
		t.Errorf("balance = %d, want restored 10000", got)
	}
	if bets.count() != 0 {
		t.Errorf("stored bets = %d, want 0 after rollback", bets.count())
	}
	if reported {
		t.Error("rollback should succeed on a fresh context")
	}
}

func TestSettleCredit(t *testing.T) {
	led, balances, _ := newFixture(0)

	bet := &model.Bet{ID: "b1", UserID: "u1", StakeCents: 3000, Odds: 1.75}
	if err := led.SettleCredit(context.Background(), bet, model.BetWon); err != nil {
		t.Fatal(err)
	}
	if got := balances.balance("u1"); got != 5250 {
		t.Errorf("balance = %d, want 5250 (stake x odds)", got)
	}

	if err := led.SettleCredit(context.Background(), bet, model.BetLost); err != nil {
		t.Fatal(err)
	}
	if got := balances.balance("u1"); got != 5250 {
		t.Errorf("balance = %d, LOST must not credit", got)
	}
}
