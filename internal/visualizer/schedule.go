package visualizer

// Schedule tracks one periodic task driven by an external clock. Every start
// hands out a new generation; ticks tagged with any other generation belong to
// a cancelled run and must be dropped, so restarting never leaves two runs
// alive.
type Schedule struct {
	gen     uint64
	running bool
}

// Start begins a new run and returns its generation. A run already in
// progress is cancelled first.
func (s *Schedule) Start() uint64 {
	s.gen++
	s.running = true
	return s.gen
}

// Stop cancels the current run. Stopping a stopped schedule does nothing.
func (s *Schedule) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.gen++
}

// Live reports whether a tick tagged gen belongs to the current run.
func (s *Schedule) Live(gen uint64) bool {
	return s.running && gen == s.gen
}

// Running reports whether a run is in progress.
func (s *Schedule) Running() bool { return s.running }

// Generation returns the generation of the current (or last) run.
func (s *Schedule) Generation() uint64 { return s.gen }
