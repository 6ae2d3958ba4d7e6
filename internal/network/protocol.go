package network

import (
	"encoding/json"
	"time"

	"terraingen/internal/dispatch"
)

type MessageType string

const (
	MessageHello      MessageType = "hello"
	MessageSpawnBatch MessageType = "spawnBatch"
	MessageBatchAck   MessageType = "batchAck"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

type Hello struct {
	RunID string `json:"runId"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// SpawnUnit asks the editor to place one unit cube.
type SpawnUnit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Position Vec3   `json:"pos"`
	Rotation Quat   `json:"rot"`
	Scale    Vec3   `json:"scale"`
	Pivot    Vec3   `json:"pivot"`
	Material string `json:"material"`
}

type SpawnBatch struct {
	RunID string      `json:"runId"`
	Seq   uint64      `json:"seq"`
	Units []SpawnUnit `json:"units"`
}

// BatchAck answers a SpawnBatch with the same Seq.
type BatchAck struct {
	Seq      uint64 `json:"seq"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

const cubeUnitType = "cube"

// NewSpawnBatch converts a dispatch batch into editor spawn commands.
func NewSpawnBatch(runID string, batch dispatch.Batch) SpawnBatch {
	units := make([]SpawnUnit, len(batch.Records))
	for i, rec := range batch.Records {
		units[i] = SpawnUnit{
			ID:       rec.ID.String(),
			Name:     rec.Name,
			Type:     cubeUnitType,
			Position: Vec3{X: float64(rec.Position.X), Y: float64(rec.Position.Y), Z: float64(rec.Position.Z)},
			Rotation: Quat{W: 1},
			Scale:    Vec3{X: 1, Y: 1, Z: 1},
			Material: rec.Material,
		}
	}
	return SpawnBatch{RunID: runID, Seq: batch.Seq, Units: units}
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

func prepare(msgType MessageType, seq uint64, payload any) ([]byte, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	return Encode(Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Seq:       seq,
		Payload:   raw,
	})
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("null"), nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
