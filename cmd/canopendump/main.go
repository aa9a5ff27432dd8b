package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"github.com/aldas/go-canopen-client/candump"
	"github.com/aldas/go-canopen-client/internal/config"
	"github.com/aldas/go-canopen-client/nodemonitor"
	"github.com/aldas/go-canopen-client/slcan"
	"github.com/aldas/go-canopen-client/socketcan"
	"github.com/tarm/serial"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

func main() {
	cfg, onlyRead, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("%v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	filter, err := newFrameFilter(cfg.Output)
	if err != nil {
		log.Fatalf("invalid filter given, %v\n", err)
	}

	device, err := openDevice(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer device.Close()

	isReplay := cfg.Input.Type == config.InputCandump
	if !isReplay {
		fmt.Printf("# Initializing device: %v\n", deviceName(cfg))
	}
	if err := device.Initialize(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("# Starting to read device: %v\n", deviceName(cfg))

	decoder := canopen.NewDecoderWithConfig(canopen.DecoderConfig{
		StrictFunctionCodes: cfg.Decoder.StrictFunctionCodes,
	})
	assembler := canopen.NewTransferAssembler(time.Duration(cfg.Decoder.SDOTimeoutMs) * time.Millisecond)

	monitor := nodemonitor.NewMonitor()
	heartbeatTimeout := time.Duration(cfg.Nodes.HeartbeatTimeoutMs) * time.Millisecond

	if writer, ok := device.(canopen.CaptureReaderWriter); ok && !onlyRead && !isReplay {
		fmt.Printf("# Starting STDIN process\n")
		go handleSTDIO(ctx, writer, monitor, heartbeatTimeout)
	}

	var csvWriter *transferCSV
	if cfg.Output.TransfersCSV != "" {
		csvWriter = newTransferCSV(cfg.Output.TransfersCSV)
	}

	frameCount := uint64(0)
	errorCountDecode := uint64(0)
	errorCountRead := uint64(0)
	for {
		capture, err := device.ReadCapture(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errorCountRead++
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Printf("# Error ReadCapture: %v\n", err)
			if errorCountRead > 20 {
				return
			}
			continue
		}
		errorCountRead = 0
		frameCount++

		frame, err := decoder.Decode(capture.Data)
		if err != nil {
			errorCountDecode++
			fmt.Printf("# Error decoding frame: %v, raw: %v (frameCount: %v, errCount: %v)\n",
				err, hex.EncodeToString(capture.Data), frameCount, errorCountDecode)
			continue
		}

		isNodeChanged, err := monitor.Process(frame, capture.Time)
		if err != nil {
			fmt.Printf("# Error at node monitor processing: %v\n", err)
		}
		if isNodeChanged && cfg.Nodes.Print {
			printNodes(monitor.Nodes(), capture.Time, heartbeatTimeout)
		}

		if transfer, ok := assembler.Assemble(frame, capture.Time); ok {
			if err := monitor.ProcessTransfer(transfer); err != nil {
				fmt.Printf("# Error at node monitor transfer processing: %v\n", err)
			}
			if cfg.Output.Transfers {
				b, err := formatTransfer(cfg.Output.Format, transfer)
				if err != nil {
					log.Fatal(err)
				}
				fmt.Printf("%s\n", b)
			}
			if csvWriter != nil {
				if err := csvWriter.Write(transfer); err != nil {
					log.Fatal(err)
				}
			}
		}

		if !filter.Match(frame) {
			continue
		}
		b, err := formatFrame(cfg.Output.Format, cfg.Input.Interface, capture, frame)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s\n", b)
	}
	fmt.Printf("# Finishing, number of processed frames: %v, errors: %v\n", frameCount, errorCountDecode)
}

// parseFlags loads configuration file (when given) and overrides its values with flags that were explicitly set.
func parseFlags(fs *flag.FlagSet, args []string) (*config.Config, bool, error) {
	configPath := fs.String("config", "", "path to YAML configuration file")
	onlyRead := fs.Bool("read-only", false, "only reads device and does not write frames given in STDIN into it")
	inputType := fs.String("input", config.InputSocketCAN, "frame source type (socketcan, slcan, candump)")
	ifName := fs.String("interface", "", "SocketCAN interface name, also used as interface name in candump output")
	deviceAddr := fs.String("device", "", "path to SLCAN serial device. For example: /dev/ttyACM0")
	baudRate := fs.Int("baud", 0, "SLCAN serial device baud rate")
	bitrate := fs.Int("bitrate", 0, "CAN bus bitrate for SLCAN adapter")
	listenOnly := fs.Bool("listen-only", false, "open SLCAN adapter in listen only mode")
	file := fs.String("file", "", "path to candump log file to replay")
	skipErrors := fs.Bool("skip-error-frames", false, "do not print CAN error frames")
	outputFormat := fs.String("output-format", config.OutputText, "in which format frames are printed out (text, json, hex, candump)")
	fcFilter := fs.String("filter", "", "comma separated list of function codes to print. For example: `nmt_ng,sdo_tx`")
	nodeFilter := fs.String("nodes", "", "comma separated list of node ids to print")
	strict := fs.Bool("strict", false, "treat unmapped function codes as decode errors")
	sdoTimeout := fs.Duration("sdo-timeout", 0, "time after which unfinished SDO transfer is discarded")
	transfers := fs.Bool("transfers", false, "print assembled SDO transfers")
	transfersCSV := fs.String("transfers-csv", "", "path to CSV file where completed SDO transfers are appended")
	printNodes := fs.Bool("print-nodes", false, "print node list when node monitor detects change")
	heartbeatTimeout := fs.Duration("heartbeat-timeout", 0, "time after which node without heartbeat is printed as not alive")
	printRaw := fs.Bool("raw", false, "prints raw frame bytes as read from device")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg := &config.Config{}
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			return nil, false, err
		}
		cfg = c
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input.Type = *inputType
		case "interface":
			cfg.Input.Interface = *ifName
		case "device":
			cfg.Input.Device = *deviceAddr
		case "baud":
			cfg.Input.Baud = *baudRate
		case "bitrate":
			cfg.Input.Bitrate = *bitrate
		case "listen-only":
			cfg.Input.ListenOnly = *listenOnly
		case "file":
			cfg.Input.File = *file
		case "skip-error-frames":
			cfg.Input.SkipErrorFrames = *skipErrors
		case "output-format":
			cfg.Output.Format = *outputFormat
		case "filter":
			cfg.Output.FunctionCodes = splitList(*fcFilter)
		case "nodes":
			var nodes []uint8
			nodes, err = string2uint8Slice(*nodeFilter)
			cfg.Output.Nodes = nodes
		case "strict":
			cfg.Decoder.StrictFunctionCodes = *strict
		case "sdo-timeout":
			cfg.Decoder.SDOTimeoutMs = int(sdoTimeout.Milliseconds())
		case "transfers":
			cfg.Output.Transfers = *transfers
		case "transfers-csv":
			cfg.Output.TransfersCSV = *transfersCSV
		case "print-nodes":
			cfg.Nodes.Print = *printNodes
		case "heartbeat-timeout":
			cfg.Nodes.HeartbeatTimeoutMs = int(heartbeatTimeout.Milliseconds())
		case "raw":
			cfg.Debug = *printRaw
		}
	})
	if err != nil {
		return nil, false, fmt.Errorf("invalid nodes filter given, %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, false, err
	}
	config.Normalize(cfg)
	return cfg, *onlyRead, nil
}

func openDevice(cfg *config.Config) (canopen.CaptureReader, error) {
	switch cfg.Input.Type {
	case config.InputSLCAN:
		port, err := serial.OpenPort(&serial.Config{
			Name: cfg.Input.Device,
			Baud: cfg.Input.Baud,
			// ReadTimeout is duration that Read call is allowed to block so context cancellation is noticed
			ReadTimeout: 100 * time.Millisecond,
			Size:        8,
		})
		if err != nil {
			return nil, err
		}
		return slcan.NewDevice(port, slcan.Config{
			Bitrate:               cfg.Input.Bitrate,
			ListenOnly:            cfg.Input.ListenOnly,
			DebugLogRawFrameBytes: cfg.Debug,
		}), nil
	case config.InputCandump:
		f, err := os.OpenFile(cfg.Input.File, os.O_RDONLY, 0)
		if err != nil {
			return nil, err
		}
		return candump.NewDevice(f), nil
	default:
		return socketcan.NewDevice(socketcan.DeviceConfig{
			InterfaceName:         cfg.Input.Interface,
			ReceiveDataTimeout:    time.Duration(cfg.Input.ReceiveTimeoutMs) * time.Millisecond,
			SkipErrorFrames:       cfg.Input.SkipErrorFrames,
			DebugLogRawFrameBytes: cfg.Debug,
		}), nil
	}
}

func deviceName(cfg *config.Config) string {
	switch cfg.Input.Type {
	case config.InputSLCAN:
		return cfg.Input.Device
	case config.InputCandump:
		return cfg.Input.File
	}
	return cfg.Input.Interface
}

func formatFrame(format string, ifName string, capture canopen.Capture, frame canopen.Frame) ([]byte, error) {
	switch format {
	case config.OutputJSON:
		return json.Marshal(frame)
	case config.OutputHex:
		return []byte(hex.EncodeToString(capture.Data)), nil
	case config.OutputCandump:
		return candump.Marshal(candump.Line{Time: capture.Time, Interface: ifName, Frame: frame.Raw})
	}
	return []byte(frame.String()), nil
}

func formatTransfer(format string, t canopen.Transfer) ([]byte, error) {
	if format == config.OutputJSON {
		return json.Marshal(t)
	}
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "# SDO %v node: %d object: 0x%04x/%d", t.Kind, t.Node, t.Index, t.SubIndex)
	if t.Aborted {
		msg, _ := canopen.SDOAbortMessage(t.AbortCode)
		fmt.Fprintf(&sb, " aborted: 0x%08x (%v)", t.AbortCode, msg)
		return []byte(sb.String()), nil
	}
	fmt.Fprintf(&sb, " data: %v", hex.EncodeToString(t.Data))
	return []byte(sb.String()), nil
}

type frameFilter struct {
	functionCodes []canopen.FunctionCode
	nodes         []uint8
}

func newFrameFilter(cfg config.OutputConfig) (frameFilter, error) {
	result := frameFilter{nodes: cfg.Nodes}
	for _, name := range cfg.FunctionCodes {
		fc, ok := canopen.ParseFunctionCode(name)
		if !ok {
			return frameFilter{}, fmt.Errorf("unknown function code: %v", name)
		}
		result.functionCodes = append(result.functionCodes, fc)
	}
	if len(result.functionCodes) > 0 {
		fmt.Printf("# Using function code filter: %v\n", result.functionCodes)
	}
	if len(result.nodes) > 0 {
		fmt.Printf("# Using node filter: %v\n", result.nodes)
	}
	return result, nil
}

// Match checks if frame passes filter. Extended frames pass only when filter is empty.
func (f frameFilter) Match(frame canopen.Frame) bool {
	if len(f.functionCodes) > 0 {
		fc, ok := frame.FunctionCode()
		if !ok || !contains(f.functionCodes, fc) {
			return false
		}
	}
	if len(f.nodes) > 0 {
		nodeID, ok := frame.NodeID()
		if !ok || !contains(f.nodes, nodeID) {
			return false
		}
	}
	return true
}

func printNodes(nodes nodemonitor.Nodes, now time.Time, heartbeatTimeout time.Duration) {
	fmt.Printf("# Known nodes: %v\n", len(nodes))
	for _, n := range nodes {
		fmt.Printf("%v\n", formatNode(n, now, heartbeatTimeout))
	}
}

func formatNode(n nodemonitor.Node, now time.Time, heartbeatTimeout time.Duration) string {
	sb := strings.Builder{}
	state := "-"
	if n.ValidState {
		state = n.State.String()
	}
	fmt.Fprintf(&sb, "# node: %d, state: %v, boots: %d, last seen: %v", n.ID, state, n.BootCount, n.LastSeen.Format(time.RFC3339Nano))
	if heartbeatTimeout > 0 {
		fmt.Fprintf(&sb, ", alive: %v", n.IsAlive(now, heartbeatTimeout))
	}
	if n.ValidLastCommand {
		fmt.Fprintf(&sb, ", last command: %v", n.LastCommand)
	}
	if n.ValidIdentity {
		fmt.Fprintf(&sb, ", vendor: 0x%08x, product: 0x%08x, revision: 0x%08x, serial: 0x%08x",
			n.Identity.VendorID, n.Identity.ProductCode, n.Identity.RevisionNumber, n.Identity.SerialNumber)
	}
	if n.Identity.DeviceName != "" {
		fmt.Fprintf(&sb, ", name: %q", n.Identity.DeviceName)
	}
	if n.Identity.SoftwareVersion != "" {
		fmt.Fprintf(&sb, ", software: %q", n.Identity.SoftwareVersion)
	}
	return sb.String()
}

// handleSTDIO writes frames given in STDIN to bus. Lines are in candump short form `ID#DATA` (`602#4018100100000000`).
func handleSTDIO(ctx context.Context, device canopen.RawFrameWriter, monitor *nodemonitor.Monitor, heartbeatTimeout time.Duration) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "!nodes" {
			printNodes(monitor.Nodes(), time.Now(), heartbeatTimeout)
			continue
		}
		frame, err := parseLine(line)
		if err != nil {
			fmt.Printf("%v\n", err)
			continue
		}

		if err = device.WriteRawFrame(ctx, frame); err != nil {
			fmt.Printf("# Error at writing: %v\n", err)
		}
	}
}

func parseLine(line string) (canopen.RawFrame, error) {
	// candump short format is
	// ID#DATA
	// 602#4018100100000000
	// 705#R
	idRaw, dataRaw, ok := strings.Cut(line, "#")
	if !ok {
		return canopen.RawFrame{}, errors.New("# Error invalid input format")
	}
	l, err := candump.Unmarshal("(0.000000) stdin " + idRaw + "#" + dataRaw)
	if err != nil {
		return canopen.RawFrame{}, fmt.Errorf("# Error parsing frame, err: %v", err)
	}
	return l.Frame, nil
}

func parseUint8(raw string, min int, max int, name string) (uint8, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("# Error failed to parse %v, err: %w", name, err)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("# Error invalid %v", name)
	}
	return uint8(n), nil
}

func splitList(s string) []string {
	result := make([]string, 0, 10)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		result = append(result, p)
	}
	return result
}

func string2uint8Slice(s string) ([]uint8, error) {
	result := make([]uint8, 0, 10)
	for _, p := range splitList(s) {
		n, err := parseUint8(p, 0, 127, "node id")
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

func contains[T comparable](elems []T, v T) bool {
	for _, s := range elems {
		if v == s {
			return true
		}
	}
	return false
}
