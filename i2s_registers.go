// i2s_registers.go - ESP32 I2S0 register map for the transmit DMA path

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

// Register file layout. Addresses follow the ESP32 I2S0 block so dumps line
// up with the datasheet; the emulated transceiver stores one 32-bit word per
// address. Link "addresses" carry descriptor ring indices rather than
// physical pointers.
const (
	I2S_REG_BASE = 0x3FF4F000

	I2S_CONF             = I2S_REG_BASE + 0x0008 // Core transceiver control
	I2S_INT_RAW          = I2S_REG_BASE + 0x000C // Raw interrupt state
	I2S_INT_ST           = I2S_REG_BASE + 0x0010 // Masked interrupt state
	I2S_INT_ENA          = I2S_REG_BASE + 0x0014 // Interrupt enable mask
	I2S_INT_CLR          = I2S_REG_BASE + 0x0018 // Write-1-to-clear
	I2S_TIMING           = I2S_REG_BASE + 0x001C // Output delay tuning
	I2S_FIFO_CONF        = I2S_REG_BASE + 0x0020 // FIFO mode, watermarks, DMA enable
	I2S_RX_EOF_NUM       = I2S_REG_BASE + 0x0024
	I2S_CONF_SINGLE_DATA = I2S_REG_BASE + 0x0028 // Constant output word when idle
	I2S_CONF_CHAN        = I2S_REG_BASE + 0x002C // Channel arrangement
	I2S_OUT_LINK         = I2S_REG_BASE + 0x0030 // Outbound descriptor link
	I2S_IN_LINK          = I2S_REG_BASE + 0x0034 // Inbound descriptor link
	I2S_OUT_EOF_DES_ADDR = I2S_REG_BASE + 0x0038 // Descriptor index of the last finished block
	I2S_IN_EOF_DES_ADDR  = I2S_REG_BASE + 0x003C
	I2S_LC_CONF          = I2S_REG_BASE + 0x0060 // DMA link controller config
	I2S_CONF1            = I2S_REG_BASE + 0x00A0
	I2S_PD_CONF          = I2S_REG_BASE + 0x00A4
	I2S_CONF2            = I2S_REG_BASE + 0x00A8
	I2S_CLKM_CONF        = I2S_REG_BASE + 0x00AC // Master clock divider
	I2S_SAMPLE_RATE_CONF = I2S_REG_BASE + 0x00B0 // Bit clock divider and word width

	I2S_REG_END   = I2S_SAMPLE_RATE_CONF
	I2S_REG_COUNT = (I2S_REG_END-I2S_REG_BASE)/4 + 1
)

// I2S_CONF bits
const (
	I2S_TX_RESET       = 1 << 0
	I2S_RX_RESET       = 1 << 1
	I2S_TX_FIFO_RESET  = 1 << 2
	I2S_RX_FIFO_RESET  = 1 << 3
	I2S_TX_START       = 1 << 4
	I2S_RX_START       = 1 << 5
	I2S_TX_SLAVE_MOD   = 1 << 6
	I2S_RX_SLAVE_MOD   = 1 << 7
	I2S_TX_RIGHT_FIRST = 1 << 8
	I2S_RX_RIGHT_FIRST = 1 << 9
	I2S_TX_MSB_SHIFT   = 1 << 10 // Philips-standard one-cycle data delay
	I2S_RX_MSB_SHIFT   = 1 << 11
	I2S_TX_MONO        = 1 << 14
	I2S_TX_MSB_RIGHT   = 1 << 16
	I2S_SIG_LOOPBACK   = 1 << 18
)

// Interrupt bits, shared by I2S_INT_RAW / I2S_INT_ST / I2S_INT_ENA / I2S_INT_CLR
const (
	I2S_TX_REMPTY_INT     = 1 << 5
	I2S_OUT_DONE_INT      = 1 << 11
	I2S_OUT_EOF_INT       = 1 << 12 // A descriptor with the EOF flag finished
	I2S_OUT_DSCR_ERR_INT  = 1 << 14 // Descriptor ownership check failed
	I2S_OUT_TOTAL_EOF_INT = 1 << 16

	I2S_OUT_EOF_INT_ENA_S = 12
)

// I2S_LC_CONF bits
const (
	I2S_IN_RST             = 1 << 0
	I2S_OUT_RST            = 1 << 1
	I2S_AHBM_FIFO_RST      = 1 << 2
	I2S_AHBM_RST           = 1 << 3
	I2S_OUT_LOOP_TEST      = 1 << 4
	I2S_IN_LOOP_TEST       = 1 << 5
	I2S_OUT_AUTO_WRBACK    = 1 << 6
	I2S_OUT_NO_RESTART_CLR = 1 << 7
	I2S_OUT_EOF_MODE       = 1 << 8 // EOF raised when the block is sent, not merely fetched
	I2S_OUTDSCR_BURST_EN   = 1 << 9
	I2S_INDSCR_BURST_EN    = 1 << 10
	I2S_OUT_DATA_BURST_EN  = 1 << 11
	I2S_CHECK_OWNER        = 1 << 12 // Engine honours the descriptor owner flag
	I2S_MEM_TRANS_EN       = 1 << 13
)

// I2S_OUT_LINK / I2S_IN_LINK fields
const (
	I2S_OUTLINK_ADDR    = 0x000FFFFF // Index of the first descriptor to service
	I2S_OUTLINK_STOP    = 1 << 28
	I2S_OUTLINK_START   = 1 << 29
	I2S_OUTLINK_RESTART = 1 << 30
	I2S_OUTLINK_PARK    = 1 << 31

	I2S_INLINK_ADDR  = 0x000FFFFF
	I2S_INLINK_STOP  = 1 << 28
	I2S_INLINK_START = 1 << 29
)

// I2S_FIFO_CONF fields
const (
	I2S_RX_DATA_NUM_S = 0 // Receive FIFO watermark
	I2S_TX_DATA_NUM_S = 6 // Transmit FIFO watermark
	I2S_DSCR_EN       = 1 << 12
	I2S_TX_FIFO_MOD_M = 0x7 << 13
	I2S_RX_FIFO_MOD_M = 0x7 << 16
)

// I2S_CONF_CHAN fields
const (
	I2S_TX_CHAN_MOD_S = 0
	I2S_RX_CHAN_MOD_S = 3
)

// I2S_TIMING fields
const (
	I2S_TX_WS_OUT_DELAY_S = 12
)

// I2S_SAMPLE_RATE_CONF fields. The *_NUM and *_MOD names are the unshifted
// field masks, the *_S names the shifts, matching how the fields pack into
// the register.
const (
	I2S_TX_BCK_DIV_NUM   = 0x3F
	I2S_TX_BCK_DIV_NUM_S = 0
	I2S_RX_BCK_DIV_NUM   = 0x3F
	I2S_RX_BCK_DIV_NUM_S = 6
	I2S_TX_BITS_MOD      = 0x3F
	I2S_TX_BITS_MOD_S    = 12
	I2S_RX_BITS_MOD      = 0x3F
	I2S_RX_BITS_MOD_S    = 18
)

// I2S_CLKM_CONF fields
const (
	I2S_CLKM_DIV_NUM   = 0xFF
	I2S_CLKM_DIV_NUM_S = 0
	I2S_CLKM_DIV_B     = 0x3F
	I2S_CLKM_DIV_B_S   = 8
	I2S_CLKM_DIV_A     = 0x3F
	I2S_CLKM_DIV_A_S   = 14
	I2S_CLK_EN         = 1 << 20
)

const (
	I2S_BASE_CLOCK          = 160000000 // PLL_D2 feed into the clock dividers
	I2S_DEFAULT_SAMPLE_RATE = 44100
)

const (
	DEFAULT_BUF_COUNT = 14 // DMA slots in the circular buffer
	DEFAULT_BUF_LEN   = 64 // 32-bit sample words per slot
)
