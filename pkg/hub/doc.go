// Package hub implements the multiplexing core: many logical channels
// carried over one persistent websocket connection per client.
//
// A Session owns one connection and reads its frames serially, so
// callbacks on the same handler never run concurrently and frames of
// one channel are processed in arrival order. Handlers are created
// lazily per (connection, channel) and live until the connection
// closes. The Registry indexes live handlers by connection id and by
// authenticated identity, backing broadcast fan-out and point-to-point
// addressing across connections.
package hub
