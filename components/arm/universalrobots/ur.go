// Package universalrobots implements a Link and PoseProvider for Universal Robots and Elite
// controllers, which share the dashboard, secondary script and realtime ports.
package universalrobots

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

const (
	defaultDashboardPort = 29999
	defaultScriptPort    = 30002
	defaultRealtimePort  = 30003

	// toolVectorOffset is the byte offset of "Tool vector actual" in a realtime packet, counting
	// the 4 byte length prefix. Six big-endian doubles follow: meters then an R3 rotation vector.
	toolVectorOffset = 444
	toolVectorEnd    = toolVectorOffset + 6*8
	maxPacketSize    = 10000

	ioTimeout                = time.Second
	maxStateAge              = time.Second
	connectTimeout           = 5 * time.Second
	firstDataTimeout         = 2 * time.Second
	reconnectInterval        = time.Second
	waitBackgroundWorkersDur = 5 * time.Second
)

// Config is used for converting config attributes.
type Config struct {
	Host          string `json:"host"`
	DashboardPort int    `json:"dashboard_port,omitempty"`
	ScriptPort    int    `json:"script_port,omitempty"`
	RealtimePort  int    `json:"realtime_port,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Host == "" {
		return errors.Errorf("%s: host is required", path)
	}
	for _, p := range []struct {
		name string
		port int
	}{
		{"dashboard_port", cfg.DashboardPort},
		{"script_port", cfg.ScriptPort},
		{"realtime_port", cfg.RealtimePort},
	} {
		if p.port < 0 || p.port > math.MaxUint16 {
			return errors.Errorf("%s: %s %d out of range", path, p.name, p.port)
		}
	}
	return nil
}

func (cfg *Config) address(port, def int) string {
	if port == 0 {
		port = def
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

func (cfg *Config) dashboardAddress() string {
	return cfg.address(cfg.DashboardPort, defaultDashboardPort)
}

func (cfg *Config) scriptAddress() string {
	return cfg.address(cfg.ScriptPort, defaultScriptPort)
}

func (cfg *Config) realtimeAddress() string {
	return cfg.address(cfg.RealtimePort, defaultRealtimePort)
}

type robotState struct {
	pose         spatialmath.Pose
	creationTime time.Time
}

// Arm is a connection to a UR-compatible controller.
type Arm struct {
	conf                    Config
	logger                  logging.Logger
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
	closed                  atomic.Bool

	muDashboard sync.Mutex
	dashboard   net.Conn
	dashboardRW *bufio.ReadWriter

	muScript sync.Mutex
	script   net.Conn

	mu       sync.Mutex
	realtime net.Conn
	state    robotState
}

var _ arm.Arm = (*Arm)(nil)

// Connect dials all three controller ports and waits for the first realtime packet.
func Connect(ctx context.Context, conf *Config, logger logging.Logger) (*Arm, error) {
	if err := conf.Validate("universalrobots"); err != nil {
		return nil, err
	}
	// this is to speed up failure if the controller is not reachable
	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(connectTimeout))
	defer cancel()

	var d net.Dialer
	connRealtime, err := d.DialContext(ctx, "tcp", conf.realtimeAddress())
	if err != nil {
		return nil, errors.Wrapf(err, "can't connect to ur arm (%s)", conf.Host)
	}
	connScript, err := d.DialContext(ctx, "tcp", conf.scriptAddress())
	if err != nil {
		return nil, multierr.Combine(
			errors.Wrapf(err, "can't connect to ur arm's script port (%s)", conf.Host),
			connRealtime.Close())
	}

	cancelCtx, cancelBackground := context.WithCancel(context.Background())
	newArm := &Arm{
		conf:     *conf,
		logger:   logger,
		cancel:   cancelBackground,
		script:   connScript,
		realtime: connRealtime,
	}
	newArm.muDashboard.Lock()
	err = newArm.dialDashboard(ctx)
	newArm.muDashboard.Unlock()
	if err != nil {
		return nil, multierr.Combine(
			errors.Wrapf(err, "can't connect to ur arm's dashboard (%s)", conf.Host),
			newArm.Close(ctx))
	}

	onData := make(chan struct{})
	var onDataOnce sync.Once
	newArm.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		newArm.realtimeLoop(cancelCtx, func() {
			onDataOnce.Do(func() {
				close(onData)
			})
		})
	}, newArm.activeBackgroundWorkers.Done)

	timer := time.NewTimer(firstDataTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, multierr.Combine(ctx.Err(), newArm.Close(ctx))
	case <-timer.C:
		return nil, multierr.Combine(errors.Errorf("arm failed to respond in time (%s)", firstDataTimeout), newArm.Close(ctx))
	case <-onData:
		return newArm, nil
	}
}

func isReconnectable(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrClosedPipe) || os.IsTimeout(err) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (ua *Arm) realtimeLoop(ctx context.Context, onHaveData func()) {
	var d net.Dialer
	for {
		ua.mu.Lock()
		conn := ua.realtime
		ua.mu.Unlock()

		err := readRealtime(ctx, conn, ua.setState, onHaveData)
		if ctx.Err() != nil {
			return
		}
		if isReconnectable(err) {
			ua.logger.Debugw("realtime connection lost", "error", err)
		} else {
			ua.logger.Warnw("realtime reader failed, reconnecting", "error", err)
		}
		goutils.UncheckedError(conn.Close())

		for {
			if ctx.Err() != nil {
				return
			}
			ua.logger.CDebugw(ctx, "attempting to reconnect to ur arm realtime port")
			dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			newConn, err := d.DialContext(dialCtx, "tcp", ua.conf.realtimeAddress())
			cancel()
			if err == nil {
				ua.mu.Lock()
				ua.realtime = newConn
				ua.mu.Unlock()
				break
			}
			if !goutils.SelectContextOrWait(ctx, reconnectInterval) {
				return
			}
		}
	}
}

// readRealtime reads length prefixed realtime packets until an error occurs.
func readRealtime(ctx context.Context, conn net.Conn, onState func(robotState), onHaveData func()) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := conn.SetReadDeadline(time.Now().Add(ioTimeout)); err != nil {
			return err
		}
		sizeBuf, err := goutils.ReadBytes(ctx, conn, 4)
		if err != nil {
			return err
		}
		msgSize := binary.BigEndian.Uint32(sizeBuf)
		if msgSize < toolVectorEnd || msgSize > maxPacketSize {
			return errors.Errorf("invalid realtime packet size: %d", msgSize)
		}
		body, err := goutils.ReadBytes(ctx, conn, int(msgSize-4))
		if err != nil {
			return err
		}
		pose, err := parseToolVector(append(sizeBuf, body...))
		if err != nil {
			return err
		}
		onState(robotState{pose: pose, creationTime: time.Now()})
		onHaveData()
	}
}

// parseToolVector extracts the actual tool pose from a full realtime packet.
func parseToolVector(packet []byte) (spatialmath.Pose, error) {
	if len(packet) < toolVectorEnd {
		return spatialmath.Pose{}, errors.Errorf("realtime packet too short: %d bytes", len(packet))
	}
	var pose spatialmath.Pose
	for i := range pose {
		off := toolVectorOffset + 8*i
		pose[i] = math.Float64frombits(binary.BigEndian.Uint64(packet[off : off+8]))
	}
	return pose, nil
}

func (ua *Arm) setState(state robotState) {
	ua.mu.Lock()
	ua.state = state
	ua.mu.Unlock()
}

func (ua *Arm) getState() (robotState, error) {
	ua.mu.Lock()
	defer ua.mu.Unlock()
	if ua.state.creationTime.IsZero() {
		return ua.state, errors.New("no realtime data received")
	}
	age := time.Since(ua.state.creationTime)
	if age > maxStateAge {
		return ua.state, errors.Errorf("ur status is too old %v from: %v", age, ua.state.creationTime)
	}
	return ua.state, nil
}

// IsConnected is true while realtime data is fresh.
func (ua *Arm) IsConnected() bool {
	if ua.closed.Load() {
		return false
	}
	_, err := ua.getState()
	return err == nil
}

// CurrentPose returns the last reported tool pose in millimeters and degrees.
func (ua *Arm) CurrentPose(ctx context.Context) ([]float64, error) {
	state, err := ua.getState()
	if err != nil {
		return nil, err
	}
	return state.pose.MillimetersDegrees(), nil
}

// dialDashboard connects to the dashboard server and consumes its greeting. Callers must
// hold muDashboard.
func (ua *Arm) dialDashboard(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", ua.conf.dashboardAddress())
	if err != nil {
		return err
	}
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	// Discard first line which is hello from dashboard
	if err := conn.SetDeadline(time.Now().Add(ioTimeout)); err != nil {
		return multierr.Combine(err, conn.Close())
	}
	if _, err := rw.ReadString('\n'); err != nil {
		return multierr.Combine(err, conn.Close())
	}
	ua.dashboard = conn
	ua.dashboardRW = rw
	return nil
}

// dashboardCommand sends one line and returns the controller's one line reply. A broken
// connection is dropped and redialed on the next command.
func (ua *Arm) dashboardCommand(ctx context.Context, cmd string) (string, error) {
	ua.muDashboard.Lock()
	defer ua.muDashboard.Unlock()
	if ua.dashboard == nil {
		if err := ua.dialDashboard(ctx); err != nil {
			return "", errors.Wrap(err, "dashboard unavailable")
		}
	}
	conn, rw := ua.dashboard, ua.dashboardRW

	deadline := time.Now().Add(ioTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	reply, err := func() (string, error) {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", err
		}
		if _, err := rw.WriteString(cmd + "\n"); err != nil {
			return "", err
		}
		if err := rw.Flush(); err != nil {
			return "", err
		}
		return rw.ReadString('\n')
	}()
	if err != nil {
		goutils.UncheckedError(conn.Close())
		ua.dashboard, ua.dashboardRW = nil, nil
		return "", errors.Wrapf(err, "dashboard command %q", cmd)
	}
	return strings.TrimSpace(reply), nil
}

func (ua *Arm) expectDashboard(ctx context.Context, cmd, wantPrefix string) error {
	reply, err := ua.dashboardCommand(ctx, cmd)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.ToLower(reply), strings.ToLower(wantPrefix)) {
		return errors.Errorf("controller refused %q: %s", cmd, reply)
	}
	ua.logger.CDebugw(ctx, "dashboard", "command", cmd, "reply", reply)
	return nil
}

// PowerOn powers the arm through the dashboard server.
func (ua *Arm) PowerOn(ctx context.Context) error {
	return ua.expectDashboard(ctx, "power on", "Powering on")
}

// BrakeRelease releases the brakes through the dashboard server.
func (ua *Arm) BrakeRelease(ctx context.Context) error {
	return ua.expectDashboard(ctx, "brake release", "Brake releasing")
}

// MoveL writes a movel line to the script port. The controller runs it asynchronously.
func (ua *Arm) MoveL(ctx context.Context, target spatialmath.Pose, accel, speed float64) bool {
	if ua.closed.Load() {
		return false
	}
	ua.muScript.Lock()
	defer ua.muScript.Unlock()
	if ua.script == nil {
		var d net.Dialer
		dialCtx, cancel := context.WithTimeout(ctx, ioTimeout)
		conn, err := d.DialContext(dialCtx, "tcp", ua.conf.scriptAddress())
		cancel()
		if err != nil {
			ua.logger.CWarnw(ctx, "can't reconnect to ur arm's script port", "error", err)
			return false
		}
		ua.script = conn
	}
	if err := ua.script.SetWriteDeadline(time.Now().Add(ioTimeout)); err != nil {
		ua.logger.CWarnw(ctx, "failed to set script deadline", "error", err)
	}
	if _, err := ua.script.Write([]byte(arm.MoveLScript(target, accel, speed))); err != nil {
		ua.logger.CWarnw(ctx, "failed to send movel", "error", err)
		goutils.UncheckedError(ua.script.Close())
		ua.script = nil
		return false
	}
	return true
}

// Close cleans up the controller connections.
func (ua *Arm) Close(ctx context.Context) error {
	ua.closed.Store(true)
	ua.cancel()

	closeConn := func(conn net.Conn, name string) error {
		if conn == nil {
			return nil
		}
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return errors.Wrapf(err, "error closing arm's %s connection", name)
		}
		return nil
	}
	currentRealtime := func() net.Conn {
		ua.mu.Lock()
		defer ua.mu.Unlock()
		return ua.realtime
	}

	// closing the realtime connection unblocks the reader since net.Conns do not utilize contexts.
	err := closeConn(currentRealtime(), "realtime")

	waitCtx, cancel := context.WithTimeout(ctx, waitBackgroundWorkersDur)
	defer cancel()
	done := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		ua.activeBackgroundWorkers.Wait()
		close(done)
	})
	select {
	case <-done:
	case <-waitCtx.Done():
		ua.logger.CWarnw(ctx, "realtime reader did not stop in time", "error", waitCtx.Err())
	}
	// the reader may have reconnected before it saw the cancellation
	err = multierr.Combine(err, closeConn(currentRealtime(), "realtime"))

	ua.muScript.Lock()
	err = multierr.Combine(err, closeConn(ua.script, "script"))
	ua.script = nil
	ua.muScript.Unlock()

	ua.muDashboard.Lock()
	err = multierr.Combine(err, closeConn(ua.dashboard, "dashboard"))
	ua.dashboard, ua.dashboardRW = nil, nil
	ua.muDashboard.Unlock()
	return err
}
