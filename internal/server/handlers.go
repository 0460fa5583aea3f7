// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Tyrowin/gochat-presence/internal/errutil"
)

// WebSocketHandler handles WebSocket upgrade requests and manages client connections.
// It validates that the request uses the GET method, upgrades the HTTP connection
// to WebSocket, creates a new Client instance, and starts the client's read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if err := s.hub.Start(client); err != nil {
		errutil.Log(client.Context(), s.logger, slog.LevelWarn, "refusing connection", err, "addr", r.RemoteAddr)
		_ = client.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat server is running!")
}

// TestPageHandler serves an HTML test page that joins the chat under a chosen
// name, sends messages and status changes, and shows the live roster.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Presence Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #layout { display: flex; gap: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            width: 500px;
            padding: 10px;
            overflow-y: scroll;
            background-color: #f9f9f9;
        }
        #roster {
            border: 1px solid #ccc;
            height: 300px;
            width: 200px;
            padding: 10px;
            list-style: none;
            margin: 0;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>GoChat Presence Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="nameInput" placeholder="Your name">
        <button id="connectButton" onclick="toggleConnection()">Join</button>
        <select id="statusSelect" onchange="sendStatus()" disabled>
            <option>Online</option>
            <option>Away</option>
            <option>Busy</option>
            <option>Offline</option>
        </select>
    </div>
    <div style="margin-top: 10px">
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="layout" style="margin-top: 10px">
        <div id="messages"></div>
        <ul id="roster"></ul>
    </div>

    <script>
        let ws = null;
        let myName = '';
        const messagesDiv = document.getElementById('messages');
        const rosterList = document.getElementById('roster');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const statusSelect = document.getElementById('statusSelect');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color || 'black';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function renderRoster(value) {
            rosterList.innerHTML = '';
            if (!value) {
                return;
            }
            value.split(',').forEach(function(entry) {
                const li = document.createElement('li');
                li.textContent = entry;
                rosterList.appendChild(li);
            });
        }

        function handleFrame(frame) {
            const first = frame.indexOf(':');
            if (first < 0) {
                return;
            }
            const kind = frame.slice(0, first);
            const rest = frame.slice(first + 1);
            const second = rest.indexOf(':');
            const field = second < 0 ? rest : rest.slice(0, second);
            const tail = second < 0 ? '' : rest.slice(second + 1);

            switch (kind) {
            case 'MESSAGE':
                addLine(field + ': ' + tail, field === 'System' ? 'gray' : 'green');
                break;
            case 'JOIN':
                addLine(field + ' joined the chat', 'gray');
                break;
            case 'LEAVE':
                addLine(field + ' left the chat', 'gray');
                break;
            case 'STATUS':
                addLine(field + ' is now ' + tail, 'gray');
                break;
            case 'USERLIST':
                renderRoster(rest);
                break;
            }
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected as ' + myName : 'Disconnected';
            statusDiv.className = connected ? 'status connected' : 'status disconnected';
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            statusSelect.disabled = !connected;
            nameInput.disabled = connected;
            connectButton.textContent = connected ? 'Leave' : 'Join';
            if (!connected) {
                renderRoster('');
            }
        }

        function connect() {
            myName = nameInput.value.trim();
            if (!myName) {
                addLine('Enter a name first', 'red');
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');

            ws.onopen = function() {
                ws.send('JOIN:' + myName);
                updateStatus(true);
            };
            ws.onmessage = function(event) {
                handleFrame(event.data);
            };
            ws.onclose = function() {
                addLine('Connection closed', 'gray');
                updateStatus(false);
                ws = null;
            };
            ws.onerror = function() {
                addLine('Connection error', 'red');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const text = messageInput.value;
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send('MESSAGE:' + myName + ':' + text);
                messageInput.value = '';
            }
        }

        function sendStatus() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send('STATUS:' + myName + ':' + statusSelect.value);
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
