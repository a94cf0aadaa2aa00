package modbusd

import (
	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Handler serves Modbus requests from the fleet's register banks. One
// handler covers every slave on the bus; the unit id selects the
// device. Requests for unregistered unit ids get an illegal data
// address exception, mimicking a silent slave as closely as Modbus
// TCP allows.
type Handler struct {
	fleet  *device.Fleet
	table  *sungrow_modbus.Table
	logger *zap.Logger
}

func NewHandler(fleet *device.Fleet, table *sungrow_modbus.Table, logger *zap.Logger) *Handler {
	return &Handler{
		fleet:  fleet,
		table:  table,
		logger: logger.With(zap.String("adapter", "modbus")),
	}
}

func (h *Handler) device(unitID uint8) (*device.Device, error) {
	dev, ok := h.fleet.Device(unitID)
	if !ok {
		h.logger.Debug("request for unknown unit id", zap.Uint8("unit_id", unitID))
		return nil, modbus.ErrIllegalDataAddress
	}
	return dev, nil
}

func (h *Handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	dev, err := h.device(req.UnitId)
	if err != nil {
		return nil, err
	}
	if req.IsWrite {
		if err := dev.Bank().WriteBits(sungrow_modbus.ClassCoil, req.Addr, req.Args); err != nil {
			return nil, modbus.ErrIllegalDataAddress
		}
		return nil, nil
	}
	bits, err := dev.Bank().ReadBits(sungrow_modbus.ClassCoil, req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return bits, nil
}

func (h *Handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	dev, err := h.device(req.UnitId)
	if err != nil {
		return nil, err
	}
	bits, err := dev.Bank().ReadBits(sungrow_modbus.ClassDiscreteInput, req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return bits, nil
}

func (h *Handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	dev, err := h.device(req.UnitId)
	if err != nil {
		return nil, err
	}
	if req.IsWrite {
		if err := h.validateWrite(dev, req.Addr, req.Args); err != nil {
			h.logger.Warn("rejected holding register write",
				zap.Uint8("unit_id", req.UnitId), zap.Uint16("addr", req.Addr), zap.Error(err))
			return nil, modbus.ErrIllegalDataValue
		}
		if err := dev.Bank().WriteWords(sungrow_modbus.ClassHolding, req.Addr, req.Args); err != nil {
			return nil, modbus.ErrIllegalDataAddress
		}
		return nil, nil
	}
	words, err := dev.Bank().ReadWords(sungrow_modbus.ClassHolding, req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return words, nil
}

func (h *Handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	dev, err := h.device(req.UnitId)
	if err != nil {
		return nil, err
	}
	words, err := dev.Bank().ReadWords(sungrow_modbus.ClassInput, req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return words, nil
}

// validateWrite range-checks every bounded descriptor touched by a
// write before any word is stored, so a rejected write never leaves a
// half-applied multi-register value. Words the write does not cover
// are taken from the bank to validate partial writes of 32-bit spans.
func (h *Handler) validateWrite(dev *device.Device, addr uint16, args []uint16) error {
	checked := make(map[*sungrow_modbus.RegisterDescriptor]bool)
	for i := range args {
		descriptor, ok := h.table.Resolve(sungrow_modbus.ClassHolding, addr+uint16(i))
		if !ok || descriptor.ValidRange == nil || checked[descriptor] {
			continue
		}
		checked[descriptor] = true

		words := make([]uint16, descriptor.WordCount())
		for w := uint16(0); w < descriptor.WordCount(); w++ {
			wordAddr := descriptor.Address + w
			if wordAddr >= addr && int(wordAddr-addr) < len(args) {
				words[w] = args[wordAddr-addr]
			} else {
				current, err := dev.Bank().ReadWords(sungrow_modbus.ClassHolding, wordAddr, 1)
				if err != nil {
					return err
				}
				words[w] = current[0]
			}
		}
		if err := sungrow_modbus.ValidateWords(descriptor, words); err != nil {
			return err
		}
	}
	return nil
}

// ensure interface compliance
var _ modbus.RequestHandler = (*Handler)(nil)
