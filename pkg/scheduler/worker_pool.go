package scheduler

import (
	"encoding/binary"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/metasched/metasched/pkg/types"
)

// workerCount mirrors the teacher's ParallelNodeFilter sizing
// (runtime.NumCPU() * 2): evaluations are CPU-bound but short, so a
// modest oversubscription keeps workers fed between batches.
func workerCount(jobs int) int {
	n := runtime.NumCPU() * 2
	if jobs < n {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// memoEntry holds one fingerprint's evaluation, computed at most once per
// batch regardless of how many assignments share it.
type memoEntry struct {
	once sync.Once
	sol  types.Solution
}

// assignmentFingerprint hashes assignment's (task, machine) pairs in
// instance's canonical task order with xxhash, so two assignments that
// agree on every task collide deterministically regardless of the map
// iteration order either was built in.
func assignmentFingerprint(instance *types.ProblemInstance, assignment types.Assignment) uint64 {
	h := xxhash.New()
	var buf [16]byte
	for _, taskID := range instance.TaskIDsSorted() {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(taskID))
		binary.LittleEndian.PutUint64(buf[8:16], uint64(assignment[taskID]))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// ScheduleAll evaluates a batch of assignments in parallel, each against
// its own deep copy of the instance, with no cross-interference (spec.md
// §4.1 "Batch evaluation"). The result order matches the input order.
//
// Ordering is guaranteed by pre-sizing the output slice and having each
// worker write to its own index (spec.md §9 "index-keyed result buffer")
// rather than appending under a lock.
//
// Assignments that fingerprint identically within the same batch — a GA
// generation's elites surviving unchanged, or PSO particles converging
// onto the same position — are evaluated only once; every other index
// sharing that fingerprint reuses the memoized Solution.
func ScheduleAll(instance *types.ProblemInstance, assignments []types.Assignment) []types.Solution {
	results := make([]types.Solution, len(assignments))
	if len(assignments) == 0 {
		return results
	}

	fingerprints := make([]uint64, len(assignments))
	memo := make(map[uint64]*memoEntry, len(assignments))
	for idx, assignment := range assignments {
		fp := assignmentFingerprint(instance, assignment)
		fingerprints[idx] = fp
		if _, ok := memo[fp]; !ok {
			memo[fp] = &memoEntry{}
		}
	}

	jobs := make(chan int, len(assignments))
	var wg sync.WaitGroup

	n := workerCount(len(assignments))
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				entry := memo[fingerprints[idx]]
				entry.once.Do(func() {
					entry.sol = safeSchedule(instance, assignments[idx])
				})
				results[idx] = entry.sol
			}
		}()
	}

	for idx := range assignments {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}

// safeSchedule isolates a single evaluation's panic (spec.md §5 "Failure
// isolation": "Any exception thrown by the scheduler for a single
// assignment must not poison the batch") behind a sentinel solution with
// fitness +∞, so one bad candidate never aborts the whole generation.
func safeSchedule(instance *types.ProblemInstance, assignment types.Assignment) (sol types.Solution) {
	defer func() {
		if r := recover(); r != nil {
			sol = types.Solution{
				Assignment: assignment.Clone(),
				Makespan:   types.PositiveInfinity(),
				Fitness:    types.PositiveInfinity(),
				Feasible:   false,
			}
		}
	}()
	return Schedule(instance, assignment)
}
