package scan

import "sync"

// Future is the handle returned by Pool.Submit. It resolves to the
// file's hex digest once a worker has hashed the file.
type Future struct {
	done   chan struct{}
	digest string
	err    error
}

// Wait blocks until the digest is ready and returns it, or the error
// the worker hit while reading the file.
func (f *Future) Wait() (string, error) {
	<-f.done
	return f.digest, f.err
}

type hashJob struct {
	path      string
	blockSize int
	fut       *Future
}

// Pool hashes files on a bounded set of worker goroutines. A nil *Pool
// is valid and means inline hashing; callers check for nil rather than
// carrying a separate enabled flag. Pool lifetime is scoped to one
// traversal run: create it, submit jobs, Close.
type Pool struct {
	jobs chan hashJob
	wg   sync.WaitGroup
}

// NewPool starts workers goroutines consuming hash jobs. workers <= 0
// returns nil, which downstream code treats as "hash inline".
func NewPool(workers int) *Pool {
	if workers <= 0 {
		return nil
	}

	p := &Pool{jobs: make(chan hashJob, 2*workers)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				j.fut.digest, j.fut.err = HashFile(j.path, j.blockSize)
				close(j.fut.done)
			}
		}()
	}
	return p
}

// Submit queues the file for hashing and returns a Future that resolves
// when a worker finishes. Submission order is independent of completion
// order; callers re-serialize by resolving each Future at the point the
// record is consumed.
func (p *Pool) Submit(path string, blockSize int) *Future {
	fut := &Future{done: make(chan struct{})}
	p.jobs <- hashJob{path: path, blockSize: blockSize, fut: fut}
	return fut
}

// Close stops accepting jobs and joins the workers. Futures already
// submitted still resolve.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}
