/*
Package ws streams session changes to host clients over websockets.

The Hub observes the session store and fans every change out to all
connected clients. Chunks of a streaming page arrive as "token" messages,
everything else carries the affected node or selection.

Server -> client message types:

	hello         connection id, current selection and node count
	node_created  {node}
	node_updated  {node}
	node_deleted  {node_id}
	token         {node_id, chunk}
	selection     {current_node_id}
	settings      {settings} with the credential masked
	loaded        {nodes, current_node_id} after a restore
	ack           {request} for an accepted navigate or generate
	pong
	error         {message}

Client -> server message types: navigate {target}, generate {url,
parent_id}, select {node_id}, ping.

A client that cannot keep up is disconnected rather than allowed to block
the store.
*/
package ws
