// Package dispatch turns one coordinator instruction into a persisted side
// effect and an accept/reject outcome.
//
// It sequences device authentication, counter allocation, the dual-cipher
// transform, and persistence into a replay-safe pipeline. The counter is
// allocated only after authentication succeeds and is consumed by exactly
// one encryption; see pkg/dualcipher for why that ordering is load-bearing.
package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Modern-Society-Labs/lcore-node/pkg/audit"
	"github.com/Modern-Society-Labs/lcore-node/pkg/deviceauth"
	"github.com/Modern-Society-Labs/lcore-node/pkg/dualcipher"
	"github.com/Modern-Society-Labs/lcore-node/pkg/store"
)

// placeholderDIDDocument marks devices that self-registered implicitly
// through submission rather than via an explicit register action.
const placeholderDIDDocument = "{}"

// Result is the outcome of dispatching one instruction. Status is an
// explicit value handed back to the loop, never ambient state. Reports
// carry inspect output for the coordinator; they are never persisted.
type Result struct {
	Status  Status
	Reports [][]byte
}

func accepted(reports ...[]byte) Result { return Result{Status: StatusAccept, Reports: reports} }
func rejected() Result                  { return Result{Status: StatusReject} }

// Dispatcher orchestrates the store, the cipher, and the authenticator.
// Stateless between calls; all mutable state lives in the store.
type Dispatcher struct {
	store  *store.Store
	policy deviceauth.Policy
	audit  *audit.Recorder
	logger *slog.Logger
}

// New creates a dispatcher. A nil recorder disables auditing; a nil logger
// uses slog.Default().
func New(s *store.Store, policy deviceauth.Policy, recorder *audit.Recorder, logger *slog.Logger) *Dispatcher {
	if recorder == nil {
		recorder = audit.NewRecorder(logger, audit.NopEmitter{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: s, policy: policy, audit: recorder, logger: logger}
}

// Dispatch processes one coordinator instruction to completion. A malformed
// or hostile request resolves to reject; storage and cipher failures while
// processing a single request also resolve to reject so one bad device
// payload can never halt processing for all devices. Dispatch itself never
// returns an error.
func (d *Dispatcher) Dispatch(req Request) Result {
	switch req.Kind {
	case KindAdvance:
		return d.advance(req.Payload)
	case KindInspect:
		return d.inspect(req.Payload)
	case KindUnknown:
		d.logger.Warn("unknown request type", "request_type", req.RawKind)
		return rejected()
	default:
		return rejected()
	}
}

// advance mutates state: register or submit.
func (d *Dispatcher) advance(payload []byte) Result {
	var env advanceEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		d.logger.Warn("malformed advance envelope", "error", err)
		return rejected()
	}

	switch parseAction(env.Action) {
	case actionRegister:
		return d.register(env.Payload)
	case actionSubmit:
		return d.submit(env.Payload)
	case actionUnknown:
		d.logger.Warn("unknown action", "action", env.Action)
		return rejected()
	default:
		return rejected()
	}
}

func (d *Dispatcher) register(raw json.RawMessage) Result {
	var p registerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		d.logger.Warn("malformed register payload", "error", err)
		return rejected()
	}
	if p.DeviceID == "" {
		d.logger.Warn("register without device_id")
		return rejected()
	}

	if err := d.store.RegisterDevice(p.DeviceID, p.DIDDocument, p.PublicKey); err != nil {
		d.logger.Error("device registration failed", "device_id", p.DeviceID, "error", err)
		return rejected()
	}

	d.audit.Record(audit.EventDeviceRegister, p.DeviceID, "")
	d.logger.Info("device registered", "device_id", p.DeviceID)
	return accepted()
}

func (d *Dispatcher) submit(raw json.RawMessage) Result {
	var p submitPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		d.logger.Warn("malformed submit payload", "error", err)
		return rejected()
	}
	if p.DeviceID == "" {
		d.logger.Warn("submit without device_id")
		return rejected()
	}

	data, err := DecodeHex(p.Data)
	if err != nil {
		d.logger.Warn("submit with malformed data", "device_id", p.DeviceID, "error", err)
		return rejected()
	}

	// Authentication gates everything that follows: no counter is
	// allocated and nothing is persisted for a submission that fails here.
	if !d.authenticate(p.DeviceID, p.JWS, data) {
		d.audit.Record(audit.EventSubmitReject, p.DeviceID, "authentication failed")
		return rejected()
	}

	// Allocate the counter exactly once, only after authentication. The
	// allocation is atomic in the store, which is what makes the derived
	// nonces unique.
	counter, err := d.store.NextCounter(p.DeviceID)
	if err != nil {
		d.logger.Error("counter allocation failed", "device_id", p.DeviceID, "error", err)
		return rejected()
	}

	ciphertext, err := dualcipher.Encrypt(p.DeviceID, counter, data)
	if err != nil {
		d.logger.Error("encryption failed", "device_id", p.DeviceID, "error", err)
		return rejected()
	}

	// Ensure the device row exists for implicit self-registration;
	// idempotent for devices that registered explicitly.
	if err := d.store.RegisterDevice(p.DeviceID, placeholderDIDDocument, ""); err != nil {
		d.logger.Error("implicit registration failed", "device_id", p.DeviceID, "error", err)
		return rejected()
	}

	if err := d.store.InsertSensorRecord(&store.SensorRecord{
		DeviceID:         p.DeviceID,
		EncryptedPayload: ciphertext,
		Stage1KeyHash:    dualcipher.Stage1KeyFingerprint(p.DeviceID),
		Stage2KeyHash:    dualcipher.Stage2KeyFingerprint(),
		Counter:          counter,
	}); err != nil {
		d.logger.Error("sensor record insert failed", "device_id", p.DeviceID, "error", err)
		return rejected()
	}

	if err := d.store.InsertAnalytics(&store.AnalyticsRecord{
		DeviceID:   p.DeviceID,
		MetricType: "payload_bytes",
		Value:      float64(len(data)),
		TimeWindow: "ingest",
	}); err != nil {
		// The sensor record is already durable; a failed metric row is
		// not a reason to reject the reading.
		d.logger.Error("analytics insert failed", "device_id", p.DeviceID, "error", err)
	}

	d.audit.Record(audit.EventSubmitAccept, p.DeviceID, fmt.Sprintf("counter=%d", counter))
	d.logger.Info("sensor data stored", "device_id", p.DeviceID, "counter", counter, "bytes", len(data))
	return accepted()
}

// authenticate applies the signature policy. Returns true when the
// submission may proceed.
func (d *Dispatcher) authenticate(deviceID, jws string, data []byte) bool {
	publicKey, hasKey, err := d.store.DevicePublicKey(deviceID)
	if err != nil {
		d.logger.Error("public key lookup failed", "device_id", deviceID, "error", err)
		return false
	}

	if hasKey && jws != "" {
		if err := deviceauth.Verify(jws, data, publicKey); err != nil {
			d.audit.Record(audit.EventAuthFailure, deviceID, err.Error())
			d.logger.Warn("signature verification failed", "device_id", deviceID, "error", err)
			return false
		}
		return true
	}

	// No stored key, or no envelope supplied.
	if d.policy == deviceauth.PolicyEnforced {
		d.audit.Record(audit.EventAuthFailure, deviceID, "unverifiable submission under enforced policy")
		d.logger.Warn("rejecting unverifiable submission", "device_id", deviceID, "has_key", hasKey, "has_jws", jws != "")
		return false
	}
	return true
}

// inspect is strictly read-only and resolves to accept in all cases,
// including unknown devices and decryption failures; the latter are logged
// and audited but deliberately do not surface to the coordinator.
func (d *Dispatcher) inspect(payload []byte) Result {
	deviceID, ok := parseInspectQuery(string(payload))
	if !ok {
		d.logger.Warn("malformed inspect query", "query", string(payload))
		return accepted()
	}

	rec, err := d.store.LatestSensorRecord(deviceID)
	if err != nil {
		d.logger.Error("sensor record lookup failed", "device_id", deviceID, "error", err)
		return accepted()
	}
	if rec == nil {
		d.logger.Info("inspect for device with no records", "device_id", deviceID)
		return accepted()
	}

	plaintext, err := dualcipher.Decrypt(rec.DeviceID, rec.Counter, rec.EncryptedPayload)
	if err != nil {
		d.audit.Record(audit.EventInspectServe, deviceID, "decryption failed: "+err.Error())
		d.logger.Error("stored record failed to decrypt", "device_id", deviceID, "counter", rec.Counter, "error", err)
		return accepted()
	}

	d.audit.Record(audit.EventInspectServe, deviceID, fmt.Sprintf("counter=%d", rec.Counter))
	return accepted(plaintext)
}
