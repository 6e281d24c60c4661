package blockchain

// Difficulty controller constants, spec.md §4.4. Not grounded on the
// teacher (which hardcodes Difficulty = 12 everywhere); grounded on
// spec.md's explicit retarget rule.
const (
	GenesisDifficulty  = uint32(4)
	MinDifficulty      = uint32(1)
	MaxDifficulty      = uint32(12)
	TargetBlockSeconds = int64(120)
	RetargetWindow     = uint32(10)
)

// nextDifficulty computes the difficulty for the block being mined at
// newHeight, given the current tip (height newHeight-1). The window is
// the RetargetWindow blocks ending at the tip, so the new difficulty
// takes effect one height after the window closes: with RetargetWindow
// 10, blocks 1-10 set block 11's difficulty, blocks 11-20 set block 21's,
// and so on. Otherwise it carries the tip's difficulty forward unchanged.
func (bc *BlockChain) nextDifficulty(tip *Block, newHeight uint32) (uint32, error) {
	if newHeight <= RetargetWindow || (newHeight-1)%RetargetWindow != 0 {
		return tip.Difficulty, nil
	}

	windowStart, err := bc.blockAtHeight(tip, newHeight-1-RetargetWindow)
	if err != nil {
		return 0, err
	}

	span := tip.Timestamp - windowStart.Timestamp
	expected := TargetBlockSeconds * int64(RetargetWindow)

	next := tip.Difficulty
	switch {
	case span < expected/2:
		next = tip.Difficulty + 1
	case span > expected*2:
		if tip.Difficulty > 0 {
			next = tip.Difficulty - 1
		}
	}

	if next < MinDifficulty {
		next = MinDifficulty
	}
	if next > MaxDifficulty {
		next = MaxDifficulty
	}
	return next, nil
}

// blockAtHeight walks back from from (inclusive) along PrevHash links
// until it reaches the requested height. Chains in this node are short
// enough that a backward walk is simpler and more obviously correct than
// maintaining a height index.
func (bc *BlockChain) blockAtHeight(from *Block, height uint32) (*Block, error) {
	current := from
	for current.Height > height {
		if current.IsGenesis() {
			break
		}
		parent, err := bc.GetBlock(current.PrevHash)
		if err != nil {
			return nil, err
		}
		current = &parent
	}
	return current, nil
}
