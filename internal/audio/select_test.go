package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDevices() []Device {
	return []Device{
		{ID: "alsa_input.usb-blue_yeti", Description: "Blue Yeti", Available: true},
		{ID: "alsa_input.pci-internal", Description: "Built-in Microphone", Available: true, Default: true},
		{ID: "alsa_input.bluez-headset", Description: "BT Headset", Available: false},
	}
}

func TestSelectDefault(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "default", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.pci-internal", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestSelectByIDSubstring(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "yeti", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-blue_yeti", selection.Device.ID)
}

func TestSelectByDescription(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "blue yeti", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-blue_yeti", selection.Device.ID)
}

func TestSelectNoMatch(t *testing.T) {
	_, err := selectDeviceFromList(testDevices(), "snowball", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match any device")
}

func TestSelectNoDevices(t *testing.T) {
	_, err := selectDeviceFromList(nil, "default", "default")
	require.Error(t, err)
}

func TestSelectMutedPrimaryFallsBackToDefault(t *testing.T) {
	devices := testDevices()
	devices[0].Muted = true

	selection, err := selectDeviceFromList(devices, "yeti", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.pci-internal", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectUnavailablePrimaryUsesNamedFallback(t *testing.T) {
	devices := testDevices()
	devices[0].Available = false

	selection, err := selectDeviceFromList(devices, "yeti", "built-in")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.pci-internal", selection.Device.ID)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectFallbackAlsoUnusable(t *testing.T) {
	devices := testDevices()
	devices[0].Muted = true

	_, err := selectDeviceFromList(devices, "yeti", "headset")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not available")
}

func TestSelectNoDefaultSource(t *testing.T) {
	devices := []Device{{ID: "only", Description: "Only Mic", Available: true}}

	_, err := selectDeviceFromList(devices, "default", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "default audio source is unavailable")
}

func TestDeviceMatches(t *testing.T) {
	device := Device{ID: "alsa_input.usb-blue_yeti", Description: "Blue Yeti"}
	require.True(t, deviceMatches(device, "yeti"))
	require.True(t, deviceMatches(device, "usb-blue"))
	require.False(t, deviceMatches(device, "snowball"))
	require.False(t, deviceMatches(device, ""))
}

func TestStopFlushesResidualPending(t *testing.T) {
	capture := &Capture{
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	capture.chunks <- []byte{0x01, 0x02}
	capture.pending = []byte{0x03, 0x04}

	var got [][]byte
	done := make(chan struct{})
	go func() {
		for chunk := range capture.chunks {
			got = append(got, chunk)
		}
		close(done)
	}()

	require.NoError(t, capture.Stop())
	<-done
	require.Equal(t, [][]byte{{0x01, 0x02}, {0x03, 0x04}}, got)
	require.Zero(t, len(capture.pending))
}

func TestStopIdempotent(t *testing.T) {
	capture := &Capture{
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}

	require.NoError(t, capture.Stop())
	require.NoError(t, capture.Stop())

	_, open := <-capture.chunks
	require.False(t, open)
}
