package core

// auctionRecord holds the per-side raw and cumulative (price-ranked)
// volumes for one candidate level during a single auction evaluation.
// Records are transient; the AuctionState drops them once resolved.
type auctionRecord struct {
	index     int
	bidAgg    int64
	offerAgg  int64
	bidVolume int64
	offerVol  int64
}

// surplus is the signed unexecuted quantity at this record's level once the
// constraining side is exhausted. Positive means excess demand.
func (r *auctionRecord) surplus() int64 {
	return r.bidAgg - r.offerAgg
}

func (r *auctionRecord) executable() int64 {
	if r.bidAgg < r.offerAgg {
		return r.bidAgg
	}
	return r.offerAgg
}

// AuctionState runs the multi-stage auction price-discovery algorithm over
// snapshots of both books plus a reference level. Built once per auction
// evaluation.
type AuctionState struct {
	instrument *Instrument
	reference  *Level
	records    []*auctionRecord
	bestBid    int
	bestOffer  int
	hasBid     bool
	hasOffer   bool

	level  *Level
	volume int64
}

// NewAuctionState snapshots both books and computes cumulative volumes per
// candidate level. Synthetic in-between levels are included so cumulative
// volumes stay monotonic across the whole candidate range.
func NewAuctionState(bids, offers *Book, reference *Level, instrument *Instrument) *AuctionState {
	bidVols, bidMkt := bids.Volumes()
	offerVols, offerMkt := offers.Volumes()

	a := &AuctionState{instrument: instrument, reference: reference}

	lo, hi, any := indexRange(bidVols, offerVols)
	if !any {
		// Only market orders (or nothing) on both sides: no limit level can
		// anchor a price, the evaluation resolves to the reference at zero.
		a.level = reference
		return a
	}

	for i := range bidVols {
		if i > a.bestBid || !a.hasBid {
			a.bestBid, a.hasBid = i, true
		}
	}
	for i := range offerVols {
		if i < a.bestOffer || !a.hasOffer {
			a.bestOffer, a.hasOffer = i, true
		}
	}

	// Records best-bid-first. Cumulative bid volume at level L counts bids
	// at-or-above L plus market bids; cumulative offer volume counts offers
	// at-or-below L plus market offers.
	bidAgg := bidMkt
	for i := hi; i >= lo; i-- {
		bidAgg += bidVols[i]
		a.records = append(a.records, &auctionRecord{
			index:     i,
			bidAgg:    bidAgg,
			bidVolume: bidVols[i],
			offerVol:  offerVols[i],
		})
	}
	offerAgg := offerMkt
	for j := len(a.records) - 1; j >= 0; j-- {
		offerAgg += a.records[j].offerVol
		a.records[j].offerAgg = offerAgg
	}

	a.resolve()
	a.records = nil
	return a
}

// Level returns the resolved uncrossing level. When zero volume is
// achievable this is the supplied reference level (auction postponed;
// extending the auction window is not supported).
func (a *AuctionState) Level() *Level {
	return a.level
}

// Volume returns the resolved executable volume.
func (a *AuctionState) Volume() int64 {
	return a.volume
}

// Touch reports the auction's top-of-book for market-data purposes: the
// resolved level and volume as both bid and offer interest.
func (a *AuctionState) Touch() Touch {
	return Touch{
		Bid:   Interest{side: Buy, level: a.level, quantity: a.volume},
		Offer: Interest{side: Sell, level: a.level, quantity: a.volume},
		State: Auction,
	}
}

// resolve cascades through the four tie-break stages, stopping as soon as
// exactly one candidate remains.
func (a *AuctionState) resolve() {
	// Stage 1: maximum executable volume.
	var maxVol int64
	for _, r := range a.records {
		if v := r.executable(); v > maxVol {
			maxVol = v
		}
	}
	if maxVol == 0 {
		a.level = a.reference
		return
	}
	candidates := make([]*auctionRecord, 0, len(a.records))
	for _, r := range a.records {
		if r.executable() == maxVol {
			candidates = append(candidates, r)
		}
	}

	// Stage 2: minimum absolute surplus.
	if len(candidates) > 1 {
		minSurplus := candidates[0].surplus()
		if minSurplus < 0 {
			minSurplus = -minSurplus
		}
		for _, r := range candidates[1:] {
			s := r.surplus()
			if s < 0 {
				s = -s
			}
			if s < minSurplus {
				minSurplus = s
			}
		}
		kept := candidates[:0]
		for _, r := range candidates {
			s := r.surplus()
			if s < 0 {
				s = -s
			}
			if s == minSurplus {
				kept = append(kept, r)
			}
		}
		candidates = kept
	}

	// Stage 3: market pressure. If the summed surplus of the other
	// candidates is uniformly positive (or uniformly negative) for every
	// candidate, the pressured side picks the single level closest to its
	// best of book.
	if len(candidates) > 1 {
		if side, uniform := pressureDirection(candidates); uniform {
			candidates = []*auctionRecord{a.closestToBest(candidates, side)}
		}
	}

	// Stage 4: closest to reference.
	if len(candidates) > 1 && a.reference != nil {
		best := candidates[0]
		for _, r := range candidates[1:] {
			dr := absInt(r.index - a.reference.index)
			db := absInt(best.index - a.reference.index)
			if dr < db || (dr == db && r.index > best.index) {
				best = r
			}
		}
		candidates = []*auctionRecord{best}
	}

	a.level = a.instrument.LevelAt(candidates[0].index)
	a.volume = maxVol
}

// pressureDirection computes, per candidate, the sum of the other
// candidates' signed surpluses; it reports the pressured side when all
// nonzero pressures share a sign.
func pressureDirection(candidates []*auctionRecord) (Side, bool) {
	var total int64
	for _, r := range candidates {
		total += r.surplus()
	}

	positive, negative := false, false
	for _, r := range candidates {
		p := total - r.surplus()
		switch {
		case p > 0:
			positive = true
		case p < 0:
			negative = true
		}
	}
	if positive == negative {
		return 0, false
	}
	if positive {
		return Buy, true
	}
	return Sell, true
}

// closestToBest picks the candidate nearest the pressured side's best limit
// level.
func (a *AuctionState) closestToBest(candidates []*auctionRecord, side Side) *auctionRecord {
	anchor, ok := a.bestOffer, a.hasOffer
	if side == Buy {
		anchor, ok = a.bestBid, a.hasBid
	}

	best := candidates[0]
	for _, r := range candidates[1:] {
		if !ok {
			// No limit anchor on the pressured side; fall back to the
			// side's own price preference.
			if (side == Buy && r.index > best.index) || (side == Sell && r.index < best.index) {
				best = r
			}
			continue
		}
		if absInt(r.index-anchor) < absInt(best.index-anchor) {
			best = r
		}
	}
	return best
}

func indexRange(a, b map[int]int64) (lo, hi int, any bool) {
	scan := func(m map[int]int64) {
		for i := range m {
			if !any {
				lo, hi, any = i, i, true
				continue
			}
			if i < lo {
				lo = i
			}
			if i > hi {
				hi = i
			}
		}
	}
	scan(a)
	scan(b)
	return lo, hi, any
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
