// Package comm - Collective communication contracts for multi-process
// evaluation.
package comm

// Communicator exposes the two collectives the evaluation protocol needs.
// Rank 0 is the root. Both collectives block until every rank in the group
// has entered them, so a completed Gather doubles as a barrier.
type Communicator interface {
	// Rank is this process's integer identity within the group.
	Rank() int
	// Size is the number of processes in the group.
	Size() int
	// Broadcast replicates the root's value to every rank. Every rank
	// receives the root's object; the value non-root ranks pass in is
	// ignored.
	Broadcast(obj interface{}) (interface{}, error)
	// Gather collects one value per rank. The returned slice is indexed by
	// rank and populated only on the root; other ranks receive nil.
	Gather(obj interface{}) ([]interface{}, error)
}

// Role is a process's part in a distributed run, resolved once from the
// communicator instead of by rank checks scattered through the aggregation
// logic.
type Role int

const (
	// RoleRoot drives the dataset and owns the aggregated results.
	RoleRoot Role = iota
	// RoleWorker predicts one shard, contributes it to the gather, and
	// reports nothing.
	RoleWorker
)

// RoleOf resolves the calling process's role. A nil communicator or a group
// of size 1 is a single-process run, which behaves as root.
func RoleOf(c Communicator) Role {
	if c == nil || c.Size() <= 1 || c.Rank() == 0 {
		return RoleRoot
	}
	return RoleWorker
}

// Distributed reports whether the communicator describes a group that
// actually needs the collective path.
func Distributed(c Communicator) bool {
	return c != nil && c.Size() > 1
}
