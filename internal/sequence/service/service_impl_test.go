package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	customerrepo "github.com/smallbiznis/tradebooks/internal/customer/repository"
	sequencedomain "github.com/smallbiznis/tradebooks/internal/sequence/domain"
	"github.com/smallbiznis/tradebooks/internal/sequence/format"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	shoprepo "github.com/smallbiznis/tradebooks/internal/shop/repository"
	"github.com/smallbiznis/tradebooks/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	allocator sequencedomain.Allocator
	shops     shopdomain.Repository
	customers customerdomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&shopdomain.Shop{},
		&customerdomain.Customer{},
		&sequencedomain.SequenceCounter{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	shops := shoprepo.Provide(db)
	customers := customerrepo.Provide(db)

	allocator := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Shops:     shops,
		Customers: customers,
	})

	return &fixture{db: db, node: node, allocator: allocator, shops: shops, customers: customers}
}

func (f *fixture) seedPair(t *testing.T, shopCode, customerCode string) (snowflake.ID, snowflake.ID) {
	t.Helper()
	ctx := context.Background()

	shopID := f.node.Generate()
	require.NoError(t, f.shops.Insert(ctx, &shopdomain.Shop{ID: shopID, Code: shopCode, Name: shopCode}))

	customerID := f.node.Generate()
	require.NoError(t, f.customers.Insert(ctx, &customerdomain.Customer{ID: customerID, Code: customerCode, Name: customerCode}))

	return shopID, customerID
}

func TestAllocateFirstAndSecondNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopID, customerID := f.seedPair(t, "MAIN", "CUST001")

	first, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, "I-MAIN/CUST001-001", first.Number)

	second, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, "I-MAIN/CUST001-002", second.Number)
}

func TestAllocateIsStrictlyIncreasingWithoutGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopID, customerID := f.seedPair(t, "MAIN", "CUST001")

	seen := make(map[int64]bool)
	for i := 1; i <= 50; i++ {
		allocation, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
		require.NoError(t, err)
		assert.Equal(t, int64(i), allocation.Sequence)
		assert.False(t, seen[allocation.Sequence], "sequence %d issued twice", allocation.Sequence)
		seen[allocation.Sequence] = true
	}
}

func TestAllocateConcurrentIssuesContiguousRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopID, customerID := f.seedPair(t, "MAIN", "CUST001")

	const workers = 16
	results := make(chan int64, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempt := 0; attempt < 100; attempt++ {
				allocation, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
				if err == nil {
					results <- allocation.Sequence
					return
				}
				if errors.Is(err, sequencedomain.ErrConflict) || db.IsSerializationErr(err) {
					time.Sleep(time.Millisecond)
					continue
				}
				errs <- err
				return
			}
			errs <- fmt.Errorf("counter conflict never resolved")
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("allocate: %v", err)
	}

	seen := make(map[int64]bool)
	for seq := range results {
		assert.False(t, seen[seq], "sequence %d issued twice", seq)
		seen[seq] = true
	}
	require.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "sequence %d missing", i)
	}
}

func TestAllocatePairsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopID, customerID := f.seedPair(t, "MAIN", "CUST001")
	otherShopID, otherCustomerID := f.seedPair(t, "DEPOT", "CUST002")

	first, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-001", first.Number)

	// Intervening allocations for another pair must not advance this pair.
	for i := 0; i < 3; i++ {
		_, err = f.allocator.Allocate(ctx, otherShopID, otherCustomerID, format.DefaultFormat)
		require.NoError(t, err)
	}

	second, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-002", second.Number)

	crossed, err := f.allocator.Allocate(ctx, shopID, otherCustomerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST002-001", crossed.Number)
}

func TestAllocateUnknownShopOrCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopID, customerID := f.seedPair(t, "MAIN", "CUST001")

	_, err := f.allocator.Allocate(ctx, f.node.Generate(), customerID, format.DefaultFormat)
	assert.ErrorIs(t, err, shopdomain.ErrNotFound)

	_, err = f.allocator.Allocate(ctx, shopID, f.node.Generate(), format.DefaultFormat)
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)
}

func TestPreviewDoesNotReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopID, customerID := f.seedPair(t, "MAIN", "CUST001")

	preview, err := f.allocator.Preview(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, int64(1), preview.Sequence)
	assert.Equal(t, "I-MAIN/CUST001-001", preview.Number)

	again, err := f.allocator.Preview(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Sequence)

	allocation, err := f.allocator.Allocate(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, int64(1), allocation.Sequence)

	next, err := f.allocator.Preview(ctx, shopID, customerID, format.DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Sequence)
}
