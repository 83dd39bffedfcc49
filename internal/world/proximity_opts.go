package world

type ProximityOpt func(*Proximity)

func WithRadius(r float64) ProximityOpt {
	return func(p *Proximity) {
		p.radius = r
	}
}
