package services

import (
	"context"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/db/memdb"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
	"github.com/uct-network/uct-ledger/tests/mocks"
)

const (
	aliceWallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bobWallet   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testNetwork = "uct-testnet"
)

var testStart = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value, the internal representation may differ
func decEq(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{
			Precision:       8,
			UnstakeCooldown: 7 * 24 * time.Hour,
			Rewards: map[string]config.RewardRule{
				"grant": {
					PerUnit:     map[string]decimal.Decimal{"amount": dec("1")},
					Destination: types.DestinationAvailable,
				},
				"session_completed": {
					Base:        dec("5"),
					PerUnit:     map[string]decimal.Decimal{"minutes": dec("0.5"), "summaries": dec("2")},
					Max:         dec("50"),
					Destination: types.DestinationAvailable,
				},
				"summary_verified": {
					Base:        dec("25"),
					Destination: types.DestinationPending,
				},
				"profile_viewed": {
					Destination: types.DestinationAvailable,
				},
			},
			BurnRates: map[string]config.BurnRate{
				"priority_task": {Flat: dec("6")},
				"ai_assist":     {Flat: dec("1"), PerUnit: dec("0.25"), Multiplier: dec("1.5")},
			},
			StakeTiers: map[string]config.StakeTier{
				"autopilot": {Amount: dec("40"), Capability: "autonomous_actions"},
				"delegate":  {Amount: dec("20"), Capability: "delegation"},
			},
		},
		Settlement: config.SettlementConfig{
			MinAmount:            dec("1"),
			Network:              testNetwork,
			MaxRequestsPerWindow: 3,
			RateLimitWindow:      time.Hour,
			MintTimeout:          time.Second,
			StaleBatchAfter:      15 * time.Minute,
			StaleBatchLimit:      100,
		},
		BatchMint: config.BatchMintConfig{
			Network:                 testNetwork,
			MaxSize:                 100,
			MinSize:                 1,
			CronSecret:              "secret",
			LockTTL:                 10 * time.Minute,
			MintTimeout:             time.Second,
			WalletLookupConcurrency: 4,
		},
		Poller: config.PollerConfig{
			StatsPollingInterval:     time.Minute,
			ReconcilePollingInterval: time.Minute,
		},
	}
}

type testEnv struct {
	svc     *Service
	store   *memdb.Store
	minter  *mocks.MinterInterface
	wallets *mocks.WalletInterface
	clock   *clock.TestClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   memdb.New(),
		minter:  mocks.NewMinterInterface(t),
		wallets: mocks.NewWalletInterface(t),
		clock:   clock.NewTestClock(testStart),
	}
	env.svc = NewService(testConfig(), env.store, env.minter, env.wallets, env.clock)
	return env
}

// fund credits available through the reward path
func (e *testEnv) fund(t *testing.T, userID, amount string) {
	t.Helper()

	_, err := e.svc.ComputeAndApplyReward(t.Context(), ActivityEvent{
		UserID:    userID,
		EventType: "grant",
		Payload:   map[string]any{"amount": amount},
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID string) *model.BalanceDocument {
	t.Helper()

	balance, err := e.svc.GetBalance(t.Context(), userID)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) advance(d time.Duration) {
	e.clock.SetTime(e.clock.Now().Add(d))
}

// requireConsistent checks non-negativity and that the aggregate matches the ledger
func (e *testEnv) requireConsistent(t *testing.T, userID string) {
	t.Helper()

	report, err := e.svc.VerifyLedger(t.Context(), userID)
	require.NoError(t, err)
	require.True(t, report.Consistent, "aggregate %+v ledger %+v", report.Aggregate, report.Ledger)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s got %s", want, got)
}

func requireErrorCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	apiErr := types.AsError(err)
	require.NotNil(t, apiErr, "expected *types.Error, got %v", err)
	require.Equal(t, code, apiErr.ErrorCode, apiErr.Error())
}

// blockUntilDone makes a mocked call wait for its context, like a hung collaborator
func blockUntilDone(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}
