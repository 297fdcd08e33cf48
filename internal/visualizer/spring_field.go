package visualizer

import "github.com/charmbracelet/harmonica"

// springField eases a row of displayed values toward their targets, one
// spring per bar.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

// step moves bar i one frame toward target. Overshoot below zero is clipped.
func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	if p < 0 {
		p, v = 0, 0
	}
	s.pos[i] = p
	s.vel[i] = v
	return p
}

// settle jumps every bar to its target with no residual motion.
func (s *springField) settle(targets []float64) {
	s.resize(len(targets))
	for i, t := range targets {
		s.pos[i] = t
		s.vel[i] = 0
	}
}
