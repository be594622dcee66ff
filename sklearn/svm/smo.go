package svm

import "math"

const tau = 1e-12

// smoResult is the dual solution of one binary problem.
type smoResult struct {
	alpha []float64
	rho   float64
	iters int
	done  bool
}

// solveSMO solves min ½αᵀQα - eᵀα s.t. yᵀα = 0, 0 ≤ αᵢ ≤ Cᵢ with
// Qᵢⱼ = yᵢyⱼK(xᵢ, xⱼ), choosing the maximal violating pair each step.
func solveSMO(cache *rowCache, y []float64, C []float64, tol float64, maxIter int) smoResult {
	n := len(y)
	alpha := make([]float64, n)
	G := make([]float64, n)
	for i := range G {
		G[i] = -1
	}

	upper := func(t int) bool { return alpha[t] >= C[t] }
	lower := func(t int) bool { return alpha[t] <= 0 }
	inUp := func(t int) bool { return (y[t] > 0 && !upper(t)) || (y[t] < 0 && !lower(t)) }
	inLow := func(t int) bool { return (y[t] > 0 && !lower(t)) || (y[t] < 0 && !upper(t)) }

	res := smoResult{}
	for res.iters = 0; res.iters < maxIter; res.iters++ {
		i, j := -1, -1
		gMax, gMin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -y[t] * G[t]
			if inUp(t) && v > gMax {
				gMax, i = v, t
			}
			if inLow(t) && v < gMin {
				gMin, j = v, t
			}
		}
		if i < 0 || j < 0 || gMax-gMin < tol {
			res.done = true
			break
		}

		Ki, Kj := cache.row(i), cache.row(j)
		Qij := y[i] * y[j] * Ki[j]
		Qii, Qjj := cache.diag[i], cache.diag[j]
		oldI, oldJ := alpha[i], alpha[j]

		if y[i] != y[j] {
			quad := math.Max(Qii+Qjj+2*Qij, tau)
			delta := (-G[i] - G[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > C[i]-C[j] {
				if alpha[i] > C[i] {
					alpha[i], alpha[j] = C[i], C[i]-diff
				}
			} else if alpha[j] > C[j] {
				alpha[j], alpha[i] = C[j], C[j]+diff
			}
		} else {
			quad := math.Max(Qii+Qjj-2*Qij, tau)
			delta := (G[i] - G[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > C[i] {
				if alpha[i] > C[i] {
					alpha[i], alpha[j] = C[i], sum-C[i]
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > C[j] {
				if alpha[j] > C[j] {
					alpha[j], alpha[i] = C[j], sum-C[j]
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			G[t] += y[t]*y[i]*Ki[t]*dI + y[t]*y[j]*Kj[t]*dJ
		}
	}

	res.alpha = alpha
	res.rho = computeRho(y, alpha, G, C)
	return res
}

func computeRho(y, alpha, G, C []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	sum, free := 0.0, 0
	for t := range y {
		yG := y[t] * G[t]
		switch {
		case alpha[t] >= C[t]:
			if y[t] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case alpha[t] <= 0:
			if y[t] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			free++
			sum += yG
		}
	}
	if free > 0 {
		return sum / float64(free)
	}
	return (ub + lb) / 2
}
