package domain

// Sale is an immutable trade receipt. The sales tape is append-only;
// records are never deleted. Fee is what the market kept from the
// seller's proceeds: the seller receives Price*Quantity - Fee exactly.
type Sale struct {
	ID       int64
	Item     Item
	Price    int64
	Fee      int64
	Quantity int64
	BuyerID  int
	SellerID int
	Step     int64
}

// SalesHistory is the durable trade tape, grouped by item key.
type SalesHistory map[MarketHashName][]*Sale
