// i2s_rate.go - Sample rate to clock divider search

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionI2S
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

package i2s

// RateConfig is a solved divider combination for one sample rate.
type RateConfig struct {
	RequestedHz int // Rate asked for
	ActualHz    int // Closest rate the divider lattice can produce
	ClkmDiv     int // I2S_CLKM_DIV_NUM master clock divider
	BckDiv      int // I2S_TX_BCK_DIV_NUM bit clock divider
	Bits        int // Bits per channel sample on the wire
}

// SolveRate finds the divider combination whose output rate lands closest
// to the requested rate. The clock chain being divided:
//
//	CLK_I2S = I2S_BASE_CLOCK / I2S_CLKM_DIV_NUM
//	BCLK    = CLK_I2S / I2S_BCK_DIV_NUM
//	WS      = BCLK / 2 / bits
//
// I2S_CLKM_DIV_NUM below 5 does not produce usable I2S data, so the search
// starts there. With wideWords set the word width may also land on 17, 18
// or 19 bits: codecs ignore the extra bits, and the fake PWM/delta-sigma
// outputs merely lose a little output voltage, so the wider words are fair
// game when one of them sits nearer the target rate.
//
// Equal-error candidates resolve to whichever the scan met first, so the
// result is deterministic for a given input.
func SolveRate(rate int, wideWords bool) RateConfig {
	best := RateConfig{RequestedHz: rate, ClkmDiv: 5, BckDiv: 2, Bits: 16, ActualHz: -10000}
	maxBits := 17
	if wideWords {
		maxBits = 20
	}
	for bckDiv := 2; bckDiv < 64; bckDiv++ {
		for clkmDiv := 5; clkmDiv < 64; clkmDiv++ {
			for bits := 16; bits < maxBits; bits++ {
				got := I2S_BASE_CLOCK / (bckDiv * clkmDiv * bits * 2)
				if abs(rate-got) < abs(rate-best.ActualHz) {
					best.ActualHz = got
					best.ClkmDiv = clkmDiv
					best.BckDiv = bckDiv
					best.Bits = bits
				}
			}
		}
	}
	// ActualHz always reflects the chosen dividers, even when the search
	// never improved on the seed.
	best.ActualHz = I2S_BASE_CLOCK / (best.BckDiv * best.ClkmDiv * best.Bits * 2)
	return best
}

// apply renders the solved configuration into the divider registers. The
// receive side gets the same values as the transmit side.
func (rc RateConfig) apply(hw Peripheral) {
	setRegBits(hw, I2S_SAMPLE_RATE_CONF, I2S_RX_BITS_MOD, uint32(rc.Bits), I2S_RX_BITS_MOD_S)
	setRegBits(hw, I2S_SAMPLE_RATE_CONF, I2S_TX_BITS_MOD, uint32(rc.Bits), I2S_TX_BITS_MOD_S)
	setRegBits(hw, I2S_SAMPLE_RATE_CONF, I2S_RX_BCK_DIV_NUM, uint32(rc.BckDiv), I2S_RX_BCK_DIV_NUM_S)
	setRegBits(hw, I2S_SAMPLE_RATE_CONF, I2S_TX_BCK_DIV_NUM, uint32(rc.BckDiv), I2S_TX_BCK_DIV_NUM_S)

	setRegBits(hw, I2S_CLKM_CONF, I2S_CLKM_DIV_A, 0, I2S_CLKM_DIV_A_S)
	setRegBits(hw, I2S_CLKM_CONF, I2S_CLKM_DIV_B, 0, I2S_CLKM_DIV_B_S)
	// Divider zero wrecks the clock; the solver never picks it.
	setRegBits(hw, I2S_CLKM_CONF, I2S_CLKM_DIV_NUM, uint32(rc.ClkmDiv), I2S_CLKM_DIV_NUM_S)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
