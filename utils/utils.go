package utils

// Units
const (
	SOL_UNIT = 1e9 // 1 SOL = 10^9 lamports
)

func HasString(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

// LamportsToSol converts a lamport amount to SOL for log output.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / SOL_UNIT
}
