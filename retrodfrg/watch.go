package retrodfrg

import "mkhd/blockdev"

// watched reports every successful sector write to the UI.
type watched struct {
	blockdev.Device
	ui *UI
}

// Watch wraps d so that its writes show up on the sector map.
func (u *UI) Watch(d blockdev.Device) blockdev.Device {
	return &watched{Device: d, ui: u}
}

func (w *watched) WriteSector(lba uint64, buf []byte) error {
	if err := w.Device.WriteSector(lba, buf); err != nil {
		return err
	}
	w.ui.mark(lba)
	return nil
}
