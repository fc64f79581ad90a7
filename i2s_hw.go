// i2s_hw.go - Hardware access layer for the I2S transmit driver
//
// The driver programs the transceiver exclusively through the Peripheral
// interface: 32-bit register reads and writes plus two hooks that stand in
// for the pieces real hardware gets for free, a view of the descriptor ring
// in driver memory and an interrupt line into driver code.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package i2s

// Peripheral is the driver's view of an I2S transceiver. I2STransceiver is
// the shipped implementation; tests substitute scripted fakes.
type Peripheral interface {
	// ReadRegister returns the current value of a register. Unmapped
	// addresses read as zero.
	ReadRegister(addr uint32) uint32

	// WriteRegister stores a register value and applies any side effects
	// (reset bits, link start/stop, interrupt clears).
	WriteRegister(addr uint32, value uint32)

	// LoadOutLink hands the peripheral the descriptor ring it will walk.
	// The ring stays owned by the driver; the peripheral only follows the
	// links. Must be called before I2S_OUTLINK_START is set.
	LoadOutLink(ring *DescriptorRing)

	// AttachInterrupt registers the completion handler. The peripheral
	// invokes it from a single goroutine, one call at a time, so the
	// handler can never observe itself nested. The handler must not
	// block.
	AttachInterrupt(handler func())
}

// setRegMask sets the bits of mask in a register, read-modify-write.
func setRegMask(hw Peripheral, reg, mask uint32) {
	hw.WriteRegister(reg, hw.ReadRegister(reg)|mask)
}

// clearRegMask clears the bits of mask in a register, read-modify-write.
func clearRegMask(hw Peripheral, reg, mask uint32) {
	hw.WriteRegister(reg, hw.ReadRegister(reg)&^mask)
}

// setRegBits replaces the field (mask << shift) of a register with value.
func setRegBits(hw Peripheral, reg, mask, value, shift uint32) {
	old := hw.ReadRegister(reg)
	hw.WriteRegister(reg, (old&^(mask<<shift))|((value&mask)<<shift))
}
