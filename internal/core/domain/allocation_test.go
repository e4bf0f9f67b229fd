package domain_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestGenesisAllocations(t *testing.T) {
	custody := domain.CustodyAddress(issuer)
	allocations, err := domain.GenesisAllocations(wallets, custody)
	require.NoError(t, err)
	require.Len(t, allocations, 5)

	fixtures := []struct {
		kind   domain.AllocationKind
		holder string
		whole  uint64
	}{
		{domain.TeamAllocation, team.Hex(), 9_777_777_778},
		{domain.AirdropsAllocation, airdrops.Hex(), 977_777_778},
		{domain.InfluencersAllocation, influencers.Hex(), 2_666_666_667},
		{domain.MarketingAllocation, marketing.Hex(), 8_888_888_889},
		{domain.CrowdsaleAllocation, custody.Hex(), 66_577_777_776},
	}

	total := new(uint256.Int)
	for i, f := range fixtures {
		t.Run(f.kind.String(), func(t *testing.T) {
			require.Equal(t, f.kind, allocations[i].Kind)
			require.Equal(t, f.holder, allocations[i].Holder.Hex())
			require.Equal(t, domain.Tokens(f.whole), allocations[i].Amount)
		})
		total.Add(total, allocations[i].Amount)
	}
	require.Equal(t, domain.TotalSupply(), total)
}

func TestComputeRoundStats(t *testing.T) {
	purchases := []domain.Purchase{
		{Id: "1", Round: domain.Round1, Buyer: alice.Hex(), Quantity: 2, Cost: uint256.NewInt(20)},
		{Id: "2", Round: domain.Round1, Buyer: alice.Hex(), Quantity: 1, Cost: uint256.NewInt(10)},
		{Id: "3", Round: domain.Round1, Buyer: bob.Hex(), Quantity: 1, Cost: uint256.NewInt(10)},
		{Id: "4", Round: domain.Round3, Buyer: carol.Hex(), Quantity: 5, Cost: uint256.NewInt(150)},
	}

	stats := domain.ComputeRoundStats(purchases)
	require.Len(t, stats, domain.NumOfRounds)

	require.Equal(t, 3, stats[0].Purchases)
	require.Equal(t, 2, stats[0].Buyers)
	require.Equal(t, uint64(4), stats[0].Sold)
	require.Equal(t, uint256.NewInt(40), stats[0].Raised)

	require.Zero(t, stats[1].Purchases)
	require.True(t, stats[1].Raised.IsZero())

	require.Equal(t, domain.Round3, stats[2].Round)
	require.Equal(t, uint256.NewInt(150), stats[2].Raised)
}
