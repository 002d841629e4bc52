// Package wifi reports the identity and signal level of the wireless
// interface the device is connected through.
package wifi

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/cubicd/internal/logging"
)

const (
	noIP         = "0.0.0.0"
	wirelessProc = "/proc/net/wireless"
)

// Snapshot is the live Wi-Fi state. Unknown values stay at their zero
// value, except IP which reads "0.0.0.0".
type Snapshot struct {
	SSID string `json:"ssid"`
	RSSI int    `json:"rssi"`
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
}

// Monitor reads interface state from the host.
type Monitor struct {
	iface  string
	logger logging.Logger

	interfaceByName func(name string) (*net.Interface, error)
	addrs           func(*net.Interface) ([]net.Addr, error)
	openWireless    func() (io.ReadCloser, error)
	ssid            func(ctx context.Context, iface string) (string, error)
}

func NewMonitor(iface string, logger logging.Logger) *Monitor {
	return &Monitor{
		iface:           iface,
		logger:          logger,
		interfaceByName: net.InterfaceByName,
		addrs:           func(i *net.Interface) ([]net.Addr, error) { return i.Addrs() },
		openWireless:    func() (io.ReadCloser, error) { return os.Open(wirelessProc) },
		ssid:            iwgetid,
	}
}

func (m *Monitor) Snapshot(ctx context.Context) Snapshot {
	s := Snapshot{IP: noIP}

	ifc, err := m.interfaceByName(m.iface)
	if err != nil {
		m.logger.Debug(ctx, "interface lookup failed", "iface", m.iface, "error", err)
		return s
	}

	s.MAC = strings.ToUpper(ifc.HardwareAddr.String())
	if ip, err := m.ipv4(ifc); err == nil {
		s.IP = ip
	}

	if rssi, err := m.rssi(); err == nil {
		s.RSSI = rssi
	} else {
		m.logger.Debug(ctx, "rssi unavailable", "iface", m.iface, "error", err)
	}

	if ssid, err := m.ssid(ctx, m.iface); err == nil {
		s.SSID = ssid
	} else {
		m.logger.Debug(ctx, "ssid unavailable", "iface", m.iface, "error", err)
	}
	return s
}

func (m *Monitor) ipv4(ifc *net.Interface) (string, error) {
	addrs, err := m.addrs(ifc)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", errors.New("no ipv4 address")
}

func (m *Monitor) rssi() (int, error) {
	f, err := m.openWireless()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseWireless(f, m.iface)
}

// parseWireless extracts the signal level in dBm for iface from the
// /proc/net/wireless table:
//
//	Inter-| sta-|   Quality        |   Discarded packets
//	 face | tus | link level noise |  nwid  crypt ...
//	wlan0: 0000   54.  -56.  -256        0      0 ...
func parseWireless(r io.Reader, iface string) (int, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		name, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(name) != iface {
			continue
		}
		f := strings.Fields(rest)
		if len(f) < 3 {
			return 0, fmt.Errorf("short line for %s", iface)
		}
		lvl, err := strconv.ParseFloat(strings.TrimSuffix(f[2], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("level %q: %w", f[2], err)
		}
		return int(lvl), nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%s not wireless", iface)
}

func iwgetid(ctx context.Context, iface string) (string, error) {
	out, err := exec.CommandContext(ctx, "iwgetid", iface, "-r").Output()
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(out)), nil
}
