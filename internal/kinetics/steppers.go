package kinetics

type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (e *Euler) Step(law RateLaw, q []float64, t, dt float64) []float64 {
	dq := law.Derive(q, t)
	out := make([]float64, len(q))
	for i := range q {
		out[i] = q[i] + dt*dq[i]
	}
	return out
}

type RK4 struct {
	scratch []float64
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) != n {
		r.scratch = make([]float64, n)
	}
}

func (r *RK4) Step(law RateLaw, q []float64, t, dt float64) []float64 {
	n := len(q)
	r.ensureScratch(n)

	k1 := law.Derive(q, t)

	for i := 0; i < n; i++ {
		r.scratch[i] = q[i] + dt*0.5*k1[i]
	}
	k2 := law.Derive(r.scratch, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = q[i] + dt*0.5*k2[i]
	}
	k3 := law.Derive(r.scratch, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = q[i] + dt*k3[i]
	}
	k4 := law.Derive(r.scratch, t+dt)

	out := make([]float64, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		out[i] = q[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}
