package cart

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"syntrad-backend/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	storage.Store
	failSet bool
	failGet bool
}

func (f *failingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("backend down")
	}
	return f.Store.Get(ctx, key)
}

func (f *failingBackend) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("backend down")
	}
	return f.Store.Set(ctx, key, value)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func widget(id, price string) Product {
	return Product{ID: id, Name: "Widget " + id, Price: dec(price), Image: "/img/" + id + ".png", Description: "spare part"}
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	backend := storage.NewMemoryStore()
	s, err := Open(context.Background(), backend, "cart:test", nil)
	require.NoError(t, err)
	return s, backend
}

func assertTotal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected total %s, got %s", want, got)
}

func TestScenarioWalkthrough(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := Product{ID: "A", Name: "Widget", Price: dec("9.99")}

	// 1
	st, err := s.Add(ctx, a, 1)
	require.NoError(t, err)
	assertTotal(t, "9.99", st.Total)
	assert.Equal(t, 1, st.Count)

	// 2
	st, err = s.Add(ctx, a, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	require.Len(t, st.Items, 1)
	assert.Equal(t, 3, st.Items[0].Quantity)
	assertTotal(t, "29.97", st.Total)

	// 3
	st, err = s.UpdateQuantity(ctx, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Items[0].Quantity)
	assertTotal(t, "9.99", st.Total)

	// 4
	st, err = s.UpdateQuantity(ctx, "A", 0)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assertTotal(t, "0", st.Total)
}

func TestTwoProductsTotalAndCount(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Add(ctx, widget("A", "10"), 1)
	require.NoError(t, err)
	st, err := s.Add(ctx, widget("B", "5"), 2)
	require.NoError(t, err)

	assertTotal(t, "20", st.Total)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, []string{"A", "B"}, ids(st.Items))
}

func TestAddAccumulates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	p := widget("P", "1.50")

	_, err := s.Add(ctx, p, 2)
	require.NoError(t, err)
	st, err := s.Add(ctx, p, 3)
	require.NoError(t, err)

	require.Len(t, st.Items, 1)
	assert.Equal(t, 5, st.Items[0].Quantity)
}

func TestAddKeepsInsertionOrderAndUniqueness(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, id := range []string{"C", "A", "B", "A", "C", "C"} {
		_, err := s.Add(ctx, widget(id, "2"), 1)
		require.NoError(t, err)
	}

	st := s.Snapshot()
	assert.Equal(t, []string{"C", "A", "B"}, ids(st.Items))
	got := map[string]int{}
	for _, it := range st.Items {
		got[it.ID] = it.Quantity
	}
	assert.Equal(t, map[string]int{"C": 3, "A": 2, "B": 1}, got)
	assert.Equal(t, 6, st.Count)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, err := s.Add(ctx, widget("A", "3"), 1)
	require.NoError(t, err)
	before, _ := backend.Get(ctx, s.Key())

	cases := []struct {
		name string
		p    Product
		qty  int
	}{
		{"empty id", Product{ID: " ", Name: "x", Price: dec("1")}, 1},
		{"empty name", Product{ID: "B", Price: dec("1")}, 1},
		{"negative price", Product{ID: "B", Name: "x", Price: dec("-0.01")}, 1},
		{"zero quantity", widget("B", "1"), 0},
		{"negative quantity", widget("A", "1"), -4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := s.Add(ctx, tc.p, tc.qty)
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, []string{"A"}, ids(st.Items))
			assert.Equal(t, 1, st.Count)
		})
	}

	after, _ := backend.Get(ctx, s.Key())
	assert.Equal(t, before, after)
}

func TestAddAllowsFreeItems(t *testing.T) {
	s, _ := newTestStore(t)
	st, err := s.Add(context.Background(), widget("FREE", "0"), 2)
	require.NoError(t, err)
	assertTotal(t, "0", st.Total)
	assert.Equal(t, 2, st.Count)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "1"), 1)
	_, _ = s.Add(ctx, widget("B", "2"), 1)

	once, err := s.Remove(ctx, "A")
	require.NoError(t, err)
	twice, err := s.Remove(ctx, "A")
	require.NoError(t, err)

	assert.Equal(t, ids(once.Items), ids(twice.Items))
	assert.Equal(t, once.Count, twice.Count)
	assert.True(t, once.Total.Equal(twice.Total))
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	st, err := s.Remove(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())
}

func TestQuantityFloorMatchesRemove(t *testing.T) {
	ctx := context.Background()
	for _, q := range []int{0, -1, -100} {
		viaUpdate, _ := newTestStore(t)
		viaRemove, _ := newTestStore(t)
		for _, s := range []*Store{viaUpdate, viaRemove} {
			_, _ = s.Add(ctx, widget("A", "4.25"), 2)
			_, _ = s.Add(ctx, widget("B", "1.10"), 1)
		}

		got, err := viaUpdate.UpdateQuantity(ctx, "A", q)
		require.NoError(t, err)
		want, err := viaRemove.Remove(ctx, "A")
		require.NoError(t, err)

		_, found := got.Find("A")
		assert.False(t, found)
		assert.Equal(t, ids(want.Items), ids(got.Items))
		assert.Equal(t, want.Count, got.Count)
		assert.True(t, want.Total.Equal(got.Total))
	}
}

func TestDecrementFromOneRemoves(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	st, _ := s.Add(ctx, widget("A", "3"), 1)

	item, _ := st.Find("A")
	st, err := s.UpdateQuantity(ctx, "A", item.Quantity-1)
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())
	assert.Equal(t, 0, st.Count)
}

func TestUpdateQuantitySetsNotIncrements(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "2.00"), 4)

	st, err := s.UpdateQuantity(ctx, "A", 7)
	require.NoError(t, err)
	item, ok := st.Find("A")
	require.True(t, ok)
	assert.Equal(t, 7, item.Quantity)
	assertTotal(t, "14", st.Total)
}

func TestUpdateQuantityUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "2"), 1)

	st, err := s.UpdateQuantity(ctx, "Z", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(st.Items))
}

func TestSetQuantityReportsChangeKind(t *testing.T) {
	items := []LineItem{{Product: widget("A", "1"), Quantity: 2}}

	_, ch := setQuantity(cloneItems(items), "A", 5)
	assert.Equal(t, Updated, ch.Kind)
	assert.Equal(t, 5, ch.Item.Quantity)

	_, ch = setQuantity(cloneItems(items), "A", 0)
	assert.Equal(t, Removed, ch.Kind)
	assert.Equal(t, "A", ch.ID)

	_, ch = setQuantity(cloneItems(items), "B", 3)
	assert.Equal(t, Unchanged, ch.Kind)

	_, ch = setQuantity(cloneItems(items), "A", 2)
	assert.Equal(t, Unchanged, ch.Kind)
}

func TestClearResetsFully(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "9.99"), 3)
	_, _ = s.Add(ctx, widget("B", "0.01"), 1)

	st, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.Equal(t, 0, s.Count())
	assertTotal(t, "0", s.Total())

	data, err := backend.Get(ctx, s.Key())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	// clearing an already empty cart is fine
	_, err = s.Clear(ctx)
	require.NoError(t, err)
}

func TestEmptyCartDerivedValues(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, 0, s.Count())
	assertTotal(t, "0", s.Total())
	assert.NotNil(t, s.Items())
	assert.Empty(t, s.Items())
}

func TestTotalIsExactDecimal(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "0.10"), 3)
	_, _ = s.Add(ctx, widget("B", "0.20"), 1)

	// 0.1*3 + 0.2 in float64 is 0.5000000000000001
	assertTotal(t, "0.5", s.Total())
	assert.Equal(t, "0.50", FormatAmount(s.Total()))
}

func TestFormatAmountRoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.13", FormatAmount(dec("0.125")))
	assert.Equal(t, "0.12", FormatAmount(dec("0.1249")))
	assert.Equal(t, "29.97", FormatAmount(dec("29.97")))
	assert.Equal(t, "20.00", FormatAmount(dec("20")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "1"), 1)

	st := s.Snapshot()
	st.Items[0].Quantity = 99
	st.Items = append(st.Items, LineItem{Product: widget("X", "1"), Quantity: 1})

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []string{"A"}, ids(s.Items()))
}

func TestRoundTripPersistence(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, _ = s.Add(ctx, widget("B", "12.345"), 2)
	_, _ = s.Add(ctx, widget("A", "0.10"), 1)
	_, _ = s.Add(ctx, widget("C", "100"), 4)
	want := s.Snapshot()

	reloaded, err := Open(ctx, backend, s.Key(), nil)
	require.NoError(t, err)
	got := reloaded.Snapshot()

	require.Equal(t, ids(want.Items), ids(got.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		assert.Equal(t, want.Items[i].Name, got.Items[i].Name)
		assert.Equal(t, want.Items[i].Image, got.Items[i].Image)
		assert.Equal(t, want.Items[i].Description, got.Items[i].Description)
		assert.Truef(t, want.Items[i].Price.Equal(got.Items[i].Price), "price of %s changed", want.Items[i].ID)
	}
	assert.True(t, want.Total.Equal(got.Total))
}

func TestOpenFallsBackToEmptyOnCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"not json":       "{{{",
		"wrong shape":    `{"items": 3}`,
		"zero quantity":  `[{"id":"A","name":"a","price":"1","quantity":0}]`,
		"duplicate ids":  `[{"id":"A","name":"a","price":"1","quantity":1},{"id":"A","name":"a","price":"1","quantity":2}]`,
		"negative price": `[{"id":"A","name":"a","price":"-1","quantity":1}]`,
		"missing id":     `[{"name":"a","price":"1","quantity":1}]`,
		"over the cap":   `[{"id":"A","name":"a","price":"1","quantity":1000}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			backend := storage.NewMemoryStore()
			require.NoError(t, backend.Set(ctx, "cart:x", []byte(raw)))

			s, err := Open(ctx, backend, "cart:x", nil)
			require.NoError(t, err)
			assert.True(t, s.Snapshot().IsEmpty())
		})
	}
}

func TestDecodeItemsTagsPersistenceDecode(t *testing.T) {
	_, err := decodeItems([]byte("nope"))
	assert.ErrorIs(t, err, ErrPersistenceDecode)
}

func TestOpenAcceptsNumericPrices(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, "cart:n", []byte(`[{"id":"A","name":"a","price":9.99,"quantity":2}]`)))

	s, err := Open(ctx, backend, "cart:n", nil)
	require.NoError(t, err)
	assertTotal(t, "19.98", s.Total())
}

func TestOpenReturnsBackendReadError(t *testing.T) {
	backend := &failingBackend{Store: storage.NewMemoryStore(), failGet: true}
	_, err := Open(context.Background(), backend, "cart:x", nil)
	require.Error(t, err)
}

func TestFailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{Store: storage.NewMemoryStore()}
	s, err := Open(ctx, backend, "cart:x", nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, widget("A", "5"), 2)
	require.NoError(t, err)

	backend.failSet = true
	for name, op := range map[string]func() (State, error){
		"add":    func() (State, error) { return s.Add(ctx, widget("B", "1"), 1) },
		"update": func() (State, error) { return s.UpdateQuantity(ctx, "A", 9) },
		"remove": func() (State, error) { return s.Remove(ctx, "A") },
		"clear":  func() (State, error) { return s.Clear(ctx) },
		"settle": func() (State, error) { return s.Settle(ctx, []LineItem{{Product: widget("A", "5"), Quantity: 2}}) },
	} {
		st, err := op()
		require.ErrorIsf(t, err, ErrPersist, "op %s", name)
		assert.Equal(t, []string{"A"}, ids(st.Items))
		assert.Equal(t, 2, s.Count())
	}

	backend.failSet = false
	reloaded, err := Open(ctx, backend, "cart:x", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())
}

func TestAddCapsLineQuantity(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	_, err := s.Add(ctx, widget("A", "1.00"), math.MaxInt)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.True(t, s.Snapshot().IsEmpty())

	_, err = s.Add(ctx, widget("A", "1.00"), MaxQuantity)
	require.NoError(t, err)

	st, err := s.Add(ctx, widget("A", "1.00"), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, MaxQuantity, st.Count)
	assertTotal(t, "999", st.Total)

	data, err := backend.Get(ctx, "cart:test")
	require.NoError(t, err)
	stored, err := decodeItems(data)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, stored[0].Quantity)
}

func TestUpdateQuantityCapsLineQuantity(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.Add(ctx, widget("A", "2"), 1)
	require.NoError(t, err)

	_, err = s.UpdateQuantity(ctx, "A", MaxQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, s.Count())

	st, err := s.UpdateQuantity(ctx, "A", MaxQuantity)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, st.Count)
}

func TestSettleKeepsWhatWasNotOrdered(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "10"), 1)
	_, _ = s.Add(ctx, widget("B", "5"), 2)
	ordered := s.Items()

	// Changes made while the order was being placed.
	_, _ = s.Add(ctx, widget("A", "10"), 2)
	_, _ = s.Add(ctx, widget("C", "3"), 1)

	st, err := s.Settle(ctx, ordered)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, ids(st.Items))
	a, _ := st.Find("A")
	assert.Equal(t, 2, a.Quantity)
	assert.Equal(t, 3, st.Count)

	reloaded, err := Open(ctx, backend, "cart:test", nil)
	require.NoError(t, err)
	assert.Equal(t, st.Items, reloaded.Items())
}

func TestSettleRemovesLinesReducedInFlight(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "10"), 3)
	ordered := s.Items()

	_, _ = s.UpdateQuantity(ctx, "A", 1)

	st, err := s.Settle(ctx, ordered)
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())
}

func TestSettleUntouchedCartIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, widget("A", "1"), 1)

	st, err := s.Settle(ctx, []LineItem{{Product: widget("Z", "1"), Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
}

func TestConcurrentAddsAreSerialised(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Add(ctx, widget("P", "0.10"), 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st := s.Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, workers, st.Count)
	assertTotal(t, "5.00", st.Total)

	reloaded, err := Open(ctx, backend, "cart:test", nil)
	require.NoError(t, err)
	assert.Equal(t, workers, reloaded.Count())
}

func TestConcurrentMixedMutations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.Add(ctx, widget("A", "1"), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, widget("B", "2"), 1)
		}()
		go func(n int) {
			defer wg.Done()
			_, _ = s.UpdateQuantity(ctx, "A", n%5+1)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Total()
		}()
	}
	wg.Wait()

	st := s.Snapshot()
	b, ok := st.Find("B")
	require.True(t, ok)
	assert.Equal(t, 20, b.Quantity)
	a, ok := st.Find("A")
	require.True(t, ok)
	assert.True(t, a.Quantity >= 1 && a.Quantity <= 5)
	assert.Equal(t, a.Quantity+b.Quantity, st.Count)

	_, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func ids(items []LineItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
