package httpservice

import (
	"strconv"

	"github.com/mmna-launch/crowdsale/internal/core/application"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/pkg/units"
)

// Token amounts are rendered with 18 decimals, quote amounts with 6.

type errorResponse struct {
	Error string `json:"error"`
}

type roundResponse struct {
	Round       int    `json:"round"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Duration    int64  `json:"duration"`
	Cap         uint64 `json:"cap"`
	Eligibility string `json:"eligibility"`
	StartedAt   int64  `json:"startedAt"`
	Sold        uint64 `json:"sold"`
	Raised      string `json:"raised"`
}

type infoResponse struct {
	SaleId            string          `json:"saleId"`
	Issuer            string          `json:"issuer"`
	Custody           string          `json:"custody"`
	CurrentRound      int             `json:"currentRound"`
	CurrentRoundName  string          `json:"currentRoundName"`
	RoundEntryTime    int64           `json:"roundEntryTime"`
	RoundDeadline     int64           `json:"roundDeadline"`
	IsFinished        bool            `json:"isFinished"`
	FinishedAt        int64           `json:"finishedAt"`
	TransfersUnlockAt int64           `json:"transfersUnlockAt"`
	TransferCooldown  int64           `json:"transferCooldown"`
	Swept             bool            `json:"swept"`
	MerkleRoot        string          `json:"merkleRoot,omitempty"`
	TotalSupply       string          `json:"totalSupply"`
	TotalSold         uint64          `json:"totalSold"`
	Receivable        string          `json:"receivable"`
	Rounds            []roundResponse `json:"rounds"`
}

type roundStatsResponse struct {
	Round     int    `json:"round"`
	Purchases int    `json:"purchases"`
	Buyers    int    `json:"buyers"`
	Sold      uint64 `json:"sold"`
	Raised    string `json:"raised"`
}

type statsResponse struct {
	infoResponse
	WhitelistSize     int                  `json:"whitelistSize"`
	CustodyQuote      string               `json:"custodyQuote"`
	CustodyTokens     string               `json:"custodyTokens"`
	RoundStats        []roundStatsResponse `json:"roundStats"`
	NumOfPurchases    int                  `json:"numOfPurchases"`
	NumOfUniqueBuyers int                  `json:"numOfUniqueBuyers"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type quoteBalanceResponse struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

type eligibilityRequest struct {
	Address string   `json:"address" binding:"required"`
	Proof   []string `json:"proof"`
}

type eligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

type buyRequest struct {
	Buyer    string   `json:"buyer" binding:"required"`
	Quantity uint64   `json:"quantity"`
	Proof    []string `json:"proof"`
	signedRequest
}

func (r buyRequest) message() string {
	return signedMessage(
		"buy", r.Deadline, "buyer", r.Buyer, "quantity", strconv.FormatUint(r.Quantity, 10),
	)
}

type receiptResponse struct {
	PurchaseId string `json:"purchaseId,omitempty"`
	Round      int    `json:"round"`
	Quantity   uint64 `json:"quantity"`
	Amount     string `json:"amount"`
	Cost       string `json:"cost"`
	Timestamp  int64  `json:"timestamp"`
}

type switchRoundResponse struct {
	CurrentRound     int    `json:"currentRound"`
	CurrentRoundName string `json:"currentRoundName"`
}

type transferRequest struct {
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	signedRequest
}

func (r transferRequest) message() string {
	return signedMessage(
		"transfer", r.Deadline, "from", r.From, "to", r.To, "amount", r.Amount,
	)
}

type purchaseResponse struct {
	Id        string `json:"id"`
	Round     int    `json:"round"`
	Buyer     string `json:"buyer"`
	Quantity  uint64 `json:"quantity"`
	Amount    string `json:"amount"`
	Cost      string `json:"cost"`
	Timestamp int64  `json:"timestamp"`
}

type approveRequest struct {
	Owner  string `json:"owner" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	signedRequest
}

func (r approveRequest) message() string {
	return signedMessage("approve", r.Deadline, "owner", r.Owner, "amount", r.Amount)
}

type initRequest struct {
	Prices []string `json:"prices" binding:"required"`
}

type whitelistRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
}

type whitelistResponse struct {
	Added int `json:"added"`
}

type merkleRootRequest struct {
	Root string `json:"root" binding:"required"`
}

type sweepResponse struct {
	Unsold   string `json:"unsold"`
	Proceeds string `json:"proceeds"`
}

type mintRequest struct {
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func toRoundResponse(r domain.RoundData) roundResponse {
	return roundResponse{
		Round:       int(r.Round),
		Name:        r.Round.String(),
		Price:       units.Format(r.Price, domain.QuoteDecimals),
		Duration:    int64(r.Duration.Seconds()),
		Cap:         r.Cap,
		Eligibility: r.Eligibility.String(),
		StartedAt:   r.StartedAt,
		Sold:        r.Sold,
		Raised:      units.Format(r.Raised, domain.QuoteDecimals),
	}
}

func toInfoResponse(info application.SaleInfo) infoResponse {
	rounds := make([]roundResponse, 0, len(info.Rounds))
	for _, r := range info.Rounds {
		rounds = append(rounds, toRoundResponse(r))
	}
	return infoResponse{
		SaleId:            info.SaleId,
		Issuer:            info.Issuer,
		Custody:           info.Custody,
		CurrentRound:      int(info.CurrentRound),
		CurrentRoundName:  info.CurrentRound.String(),
		RoundEntryTime:    info.RoundEntryTime,
		RoundDeadline:     info.RoundDeadline,
		IsFinished:        info.IsFinished,
		FinishedAt:        info.FinishedAt,
		TransfersUnlockAt: info.TransfersUnlockAt,
		TransferCooldown:  int64(info.TransferCooldown.Seconds()),
		Swept:             info.Swept,
		MerkleRoot:        info.MerkleRoot,
		TotalSupply:       units.Format(info.TotalSupply, domain.TokenDecimals),
		TotalSold:         info.TotalSold,
		Receivable:        units.Format(info.Receivable, domain.QuoteDecimals),
		Rounds:            rounds,
	}
}

func toStatsResponse(stats application.SaleStats) statsResponse {
	roundStats := make([]roundStatsResponse, 0, len(stats.RoundStats))
	for _, s := range stats.RoundStats {
		roundStats = append(roundStats, roundStatsResponse{
			Round:     int(s.Round),
			Purchases: s.Purchases,
			Buyers:    s.Buyers,
			Sold:      s.Sold,
			Raised:    units.Format(s.Raised, domain.QuoteDecimals),
		})
	}
	return statsResponse{
		infoResponse:      toInfoResponse(stats.SaleInfo),
		WhitelistSize:     stats.WhitelistSize,
		CustodyQuote:      units.Format(stats.CustodyQuote, domain.QuoteDecimals),
		CustodyTokens:     units.Format(stats.CustodyTokens, domain.TokenDecimals),
		RoundStats:        roundStats,
		NumOfPurchases:    stats.NumOfPurchases,
		NumOfUniqueBuyers: stats.NumOfUniqueBuyers,
	}
}

func toReceiptResponse(r application.Receipt) receiptResponse {
	return receiptResponse{
		PurchaseId: r.PurchaseId,
		Round:      int(r.Round),
		Quantity:   r.Quantity,
		Amount:     units.Format(r.Amount, domain.TokenDecimals),
		Cost:       units.Format(r.Cost, domain.QuoteDecimals),
		Timestamp:  r.Timestamp,
	}
}

func toPurchaseResponse(p domain.Purchase) purchaseResponse {
	return purchaseResponse{
		Id:        p.Id,
		Round:     int(p.Round),
		Buyer:     p.Buyer,
		Quantity:  p.Quantity,
		Amount:    units.Format(p.Amount, domain.TokenDecimals),
		Cost:      units.Format(p.Cost, domain.QuoteDecimals),
		Timestamp: p.Timestamp,
	}
}
