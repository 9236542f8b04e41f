// Package connection defines the transport-neutral Connection contract used by
// remotepad to stream control-pad input events to a remote listener.
//
// This package manages:
//   - The closed set of transport kinds (Type) and lifecycle states (State)
//   - The Connection and Receiver interfaces every transport implements
//   - Broadcast streams with latest-value replay for state reporting
//   - The per-transport configuration value objects and their JSON form
//
// # Lifecycle
//
// A caller obtains a Connection from the transport factory, subscribes to its
// state stream, calls Setup once, calls SendData any number of times and
// finally calls TearDown exactly once:
//
//	conn, err := transport.New(connection.TypeTCP, raw, env)
//	if err != nil {
//	    return err
//	}
//	states, cancel := conn.States().Subscribe()
//	defer cancel()
//
//	conn.Setup(ctx)
//	conn.SendData(ctx, `{"button":"A","pressed":true}`)
//	conn.TearDown(ctx)
//
// # Error Reporting
//
// No method of the Connection contract returns an error. Every failure is
// caught at the transport boundary, logged, and published as a State. The
// state stream is the caller's only error-observation mechanism, and nothing
// in this layer retries or reconnects automatically.
//
// # Thread Safety
//
//   - SendData is safe for concurrent use by multiple producers.
//   - Streams are single-producer (the owning transport) and multi-consumer.
//   - A subscriber joining late sees the most recent state first.
package connection
