package matching

import (
	"context"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/logging"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"go.uber.org/zap"
)

const (
	depthStart = 10
	depthStep  = 5
	depthMax   = 50

	depositorLimit = 100
)

// Source is the read surface the matching engine needs: the top-N
// exchange users by max(total_funded) and the top-100 depositors into the
// exchange's known deposit address, both restricted to [start, end].
type Source interface {
	ExchangeUsers(ctx context.Context, start, end time.Time, topN int) ([]MinFunding, error)
	Deposits(ctx context.Context, exchangeAddress model.Address, start, end time.Time, limit int) ([]Deposit, error)
}

// Checkpoint persists matching state after every user step, so a breadth
// pass is resumable.
type Checkpoint interface {
	Save(s *State) error
}

// BreadthPass runs a single depth-N pass over every day in [start, end]:
// for each day, it fetches the top-N exchange users and the top-100
// depositors observed up to that day, then narrows every not-yet-definite
// user's candidate set against that day's deposits.
func BreadthPass(ctx context.Context, src Source, s *State, exchangeAddress model.Address, start, end time.Time, topN int, cp Checkpoint) error {
	for _, d := range daysInRange(start, end) {
		users, err := src.ExchangeUsers(ctx, start, d, topN)
		if err != nil {
			logBreadthQueryError("exchange_users", topN, d, err)
			continue
		}
		deposits, err := src.Deposits(ctx, exchangeAddress, start, d, depositorLimit)
		if err != nil {
			logBreadthQueryError("deposits", topN, d, err)
			continue
		}

		for _, u := range users {
			if _, done := s.Definite[u.UserID]; done {
				continue
			}
			s.EliminateCandidates(u, deposits)
			if cp != nil {
				if err := cp.Save(s); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DepthSweep runs successive BreadthPass calls at top-N = depthStart,
// depthStart+depthStep, ... up to depthMax, so later passes benefit from
// eliminations recorded by earlier, shallower ones.
func DepthSweep(ctx context.Context, src Source, s *State, exchangeAddress model.Address, start, end time.Time, cp Checkpoint) error {
	for topN := depthStart; topN <= depthMax; topN += depthStep {
		if err := BreadthPass(ctx, src, s, exchangeAddress, start, end, topN, cp); err != nil {
			return err
		}
	}
	return nil
}

// logBreadthQueryError reports a per-day Source query failure inside a
// breadth pass: the outer depth sweep does not abort on these (spec.md
// §9's depth_search_by_top_n_accounts error-propagation decision), it
// just skips that day's narrowing and moves on. Tests override this var
// to assert it fired.
var logBreadthQueryError = func(query string, topN int, day time.Time, err error) {
	logging.L().Warn("matching: breadth pass query error",
		zap.String("query", query), zap.Int("top_n", topN), zap.Time("day", day), zap.Error(err))
}

// daysInRange enumerates every UTC day boundary from start (exclusive of
// start itself) through end, inclusive, mirroring the one-day-at-a-time
// widening window the breadth pass sweeps over.
func daysInRange(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	if len(days) == 0 {
		days = append(days, end)
	}
	return days
}
