// Package influxdb writes serial link diagnostics to InfluxDB.
//
// It wraps influxdb-client-go v2 with connection checks and a
// non-blocking batched write API. Only link and scheduler counters are
// stored (measurement "rego_link"); sensor values are never persisted.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteLinkSample(sample, time.Now())
//
// Write errors arrive asynchronously through SetOnError.
package influxdb
