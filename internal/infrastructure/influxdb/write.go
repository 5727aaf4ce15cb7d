package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the dashboard.
const (
	MeasurementSensor = "sensor_readings"
)

// WriteSensorReading records one sensor value.
//
// The sensor id (its topic) is the series key; unit and label are tags when
// present. The write is non-blocking and dropped when disconnected.
//
//	client.WriteSensorReading("sensor/lab/temp", "C", "Lab", 21.5, time.Now())
func (c *Client) WriteSensorReading(sensorID, unit, label string, value float64, at time.Time) {
	tags := map[string]string{"sensor_id": sensorID}
	if unit != "" {
		tags["unit"] = unit
	}
	if label != "" {
		tags["label"] = label
	}

	c.WritePointWithTime(MeasurementSensor, tags, map[string]interface{}{"value": value}, at)
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
