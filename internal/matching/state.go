// Package matching implements the offline Matching Engine (C8): a
// progressive-elimination heuristic correlating on-chain deposit
// addresses to exchange user ids over a depth-sweeping series of breadth
// passes.
package matching

import "github.com/0lnetwork/graphwarehouse/internal/model"

// Deposit is one address's cumulative on-chain deposit total into the
// exchange's known deposit address, over some date range.
type Deposit struct {
	Address   model.Address
	Deposited float64
}

// MinFunding is one exchange user's minimum required funding (the maximum
// total_funded seen in their ledger) over some date range.
type MinFunding struct {
	UserID int64
	Funded float64
}

// Candidates tracks one user's narrowing set of possible deposit
// addresses (maybe) and addresses ruled out for that user (impossible).
type Candidates struct {
	Maybe      []model.Address `json:"maybe"`
	Impossible []model.Address `json:"impossible"`
}

// State is the matching engine's full checkpointable state: confirmed
// user->address matches, and per-user candidate sets still being
// narrowed.
type State struct {
	Definite map[int64]model.Address `json:"definite"`
	Pending  map[int64]*Candidates   `json:"pending"`
}

// NewState constructs an empty matching State.
func NewState() *State {
	return &State{
		Definite: make(map[int64]model.Address),
		Pending:  make(map[int64]*Candidates),
	}
}

// EliminateCandidates narrows user's maybe-list against one day's
// observed deposits, moving it to Definite the moment exactly one
// candidate remains. Depositors that fail the funding/impossible/definite
// filter this round are recorded as impossible so later passes never
// reconsider them.
func (s *State) EliminateCandidates(user MinFunding, deposits []Deposit) {
	pending, ok := s.Pending[user.UserID]
	if !ok {
		pending = &Candidates{}
		s.Pending[user.UserID] = pending
	}

	var eval []model.Address
	for _, d := range deposits {
		if d.Deposited >= user.Funded && !containsAddress(pending.Impossible, d.Address) && !isAssignedElsewhere(s.Definite, d.Address) {
			eval = append(eval, d.Address)
		} else if !containsAddress(pending.Impossible, d.Address) {
			pending.Impossible = append(pending.Impossible, d.Address)
		}
	}

	if len(pending.Maybe) == 0 {
		pending.Maybe = eval
	} else if intersected := intersectAddresses(pending.Maybe, eval); len(intersected) > 0 {
		pending.Maybe = intersected
	}

	if len(pending.Maybe) == 1 {
		s.Definite[user.UserID] = pending.Maybe[0]
	}
}

func containsAddress(addrs []model.Address, a model.Address) bool {
	for _, existing := range addrs {
		if existing == a {
			return true
		}
	}
	return false
}

func isAssignedElsewhere(definite map[int64]model.Address, a model.Address) bool {
	for _, v := range definite {
		if v == a {
			return true
		}
	}
	return false
}

func intersectAddresses(a, b []model.Address) []model.Address {
	var out []model.Address
	for _, x := range a {
		if containsAddress(b, x) {
			out = append(out, x)
		}
	}
	return out
}
