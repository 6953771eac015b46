package dashboard

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Crowd Count Dashboard</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; background: #101628; color: #e8ecf5; font-family: system-ui, sans-serif; }
        .app { max-width: 1100px; margin: 0 auto; padding: 18px; }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 14px; }
        .title { font-size: 1.3em; font-weight: 600; }
        .badge { padding: 4px 10px; border-radius: 10px; background: #2a3554; font-size: 0.85em; }
        .badge.alert { background: #b33; }
        .panel { background: #182038; border-radius: 10px; padding: 14px; margin-bottom: 14px; }
        .panel h2 { margin: 0 0 8px; font-size: 1.0em; color: #9fb0d0; }
        img#video { width: 100%; height: auto; display: block; border-radius: 6px; background: #000; }
        table { width: 100%; border-collapse: collapse; }
        td { padding: 4px 8px; border-bottom: 1px solid #243052; }
        td.count { text-align: right; font-variant-numeric: tabular-nums; }
    </style>
</head>
<body>
    <div class="app">
        <div class="header">
            <div class="title">Crowd Count Dashboard</div>
            <span class="badge" id="total-badge">Waiting for data...</span>
        </div>

        <div class="panel">
            <h2>Live Overlay</h2>
            <img id="video" src="/video" alt="Live overlay stream">
        </div>

        <div class="panel">
            <h2>Zone Occupancy</h2>
            <table><tbody id="zone-rows"></tbody></table>
        </div>
    </div>

    <script>
        const badge = document.getElementById('total-badge');
        const rows = document.getElementById('zone-rows');
        let threshold = 20;

        fetch('/api/settings')
            .then(r => r.json())
            .then(s => { threshold = s.alert_threshold; })
            .catch(() => {});

        function renderSnapshot(snap) {
            badge.textContent = snap.total_people + ' people';
            badge.classList.toggle('alert', snap.total_people > threshold);
            rows.innerHTML = '';
            Object.keys(snap.zones || {}).sort().forEach(name => {
                const tr = document.createElement('tr');
                tr.innerHTML = '<td>' + name + '</td><td class="count">' + snap.zones[name] + '</td>';
                rows.appendChild(tr);
            });
        }

        const source = new EventSource('/api/live');
        source.onmessage = (ev) => {
            try { renderSnapshot(JSON.parse(ev.data)); } catch (e) { /* skip bad event */ }
        };
    </script>
</body>
</html>
`
