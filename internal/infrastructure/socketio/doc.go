// Package socketio is a small Socket.IO client for the Maestro cloud session.
//
// It speaks Engine.IO protocol revision 3 directly over a WebSocket
// (gorilla/websocket), skipping the HTTP long-polling transport:
//
//	ws://host:port/socket.io/?EIO=3&transport=websocket
//
// Supported: the default namespace, text events with JSON arguments,
// client heartbeats (and answering server heartbeats), automatic reconnection
// with exponential backoff. Not supported: binary attachments, acknowledgements,
// custom namespaces.
//
// # Usage
//
//	client, err := socketio.New(socketio.Config{URL: "http://app.mcz.it:9000"})
//	client.On("rispondo", func(payload json.RawMessage) { ... })
//	client.SetOnConnect(func() { client.Emit("join", joinRequest) })
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
package socketio
