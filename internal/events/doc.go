// Package events turns event-sensor streams into Event batches.
//
// Responsibilities:
//   - Decode AEUnicast UDP datagrams (address/timestamp pairs with an
//     optional sequence header) and eDVS serial byte streams.
//   - Receive datagrams from a UDP socket, events from a serial port,
//     recorded datagrams from a pcap capture, or "ts x y p" text logs.
//   - Hand every decoded batch to a Handler.
//
// Key types: Event, Handler, UnicastDecoder, EDVSDecoder, UDPListener,
// SerialSource.
//
// Dependency rule: events depends only on monitoring. It knows nothing
// about templates or tracking; pixel coordinates are passed through
// unchanged.
package events
