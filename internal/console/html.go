package console

const consoleHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Zone Editor Console</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; background: #101628; color: #e8ecf5; font-family: system-ui, sans-serif; }
        .app { max-width: 1200px; margin: 0 auto; padding: 18px; display: grid; grid-template-columns: 2fr 1fr; gap: 14px; }
        .panel { background: #182038; border-radius: 10px; padding: 14px; }
        .panel h2 { margin: 0 0 8px; font-size: 1.0em; color: #9fb0d0; }
        #frame { width: 100%; display: block; border-radius: 6px; background: #000; }
        #frame.draw-line, #frame.draw-poly { cursor: crosshair; }
        #frame.edit-mode { cursor: move; }
        .toolbar { display: flex; gap: 8px; margin: 10px 0; flex-wrap: wrap; }
        button { background: #2a3554; color: #e8ecf5; border: 0; border-radius: 6px; padding: 7px 12px; cursor: pointer; }
        button.active { background: #3d64c4; }
        button:disabled { opacity: 0.4; cursor: default; }
        input[type=text], input[type=number] { background: #0e1426; color: #e8ecf5; border: 1px solid #2a3554; border-radius: 6px; padding: 6px 8px; }
        .zone-row { display: flex; justify-content: space-between; align-items: center; padding: 5px 0; border-bottom: 1px solid #243052; }
        .count-badge { background: #2a3554; border-radius: 10px; padding: 2px 9px; font-variant-numeric: tabular-nums; }
        .count-badge.busy { background: #2cc38a; color: #08131f; }
        #banner { display: none; background: #b33; border-radius: 8px; padding: 10px 14px; margin-bottom: 10px; font-weight: 600; }
        #banner.visible { display: block; }
        canvas.chart { width: 100%; height: 120px; background: #0e1426; border-radius: 6px; }
        .muted { color: #6f7ea0; font-size: 0.85em; }
    </style>
</head>
<body>
    <div class="app">
        <div>
            <div id="banner">Crowd alert: occupancy above threshold</div>
            <div class="panel">
                <h2>Overlay</h2>
                <img id="frame" src="/frame" alt="Editor overlay">
                <div class="toolbar">
                    <input type="text" id="zone-name" placeholder="Zone name">
                    <button id="tool-line">Draw Line</button>
                    <button id="tool-poly">Draw Zone</button>
                    <button id="tool-save" disabled>Save</button>
                    <button id="tool-cancel" disabled>Cancel</button>
                </div>
                <div class="muted" id="status-line">idle</div>
            </div>
        </div>
        <div>
            <div class="panel">
                <h2>Zones</h2>
                <div id="zone-list"></div>
            </div>
            <div class="panel" style="margin-top:14px;">
                <h2>Total Trend</h2>
                <canvas class="chart" id="trend"></canvas>
            </div>
            <div class="panel" style="margin-top:14px;">
                <h2>Per-Zone</h2>
                <canvas class="chart" id="bars"></canvas>
            </div>
            <div class="panel" style="margin-top:14px;">
                <h2>Alerts</h2>
                <label><input type="checkbox" id="alerts-enabled"> Enabled</label>
                <input type="number" id="alert-threshold" min="0" style="width:70px;">
            </div>
        </div>
    </div>

    <script>
        const frame = document.getElementById('frame');
        const nameInput = document.getElementById('zone-name');
        const saveBtn = document.getElementById('tool-save');
        const cancelBtn = document.getElementById('tool-cancel');
        const lineBtn = document.getElementById('tool-line');
        const polyBtn = document.getElementById('tool-poly');

        function post(path, body) {
            return fetch(path, {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify(body || {})
            }).then(r => r.json());
        }

        function stageName() { return post('/api/name', {name: nameInput.value}); }

        lineBtn.onclick = () => stageName().then(() => post('/api/tool', {tool: 'line'})).then(refresh);
        polyBtn.onclick = () => stageName().then(() => post('/api/tool', {tool: 'poly'})).then(refresh);
        saveBtn.onclick = () => post('/api/commit').then(res => {
            if (!res.ok) alert(res.message || 'Save failed');
            refresh();
        });
        cancelBtn.onclick = () => post('/api/cancel').then(refresh);

        frame.onclick = (ev) => {
            const rect = frame.getBoundingClientRect();
            post('/api/click', {
                x: (ev.clientX - rect.left) * (640 / rect.width),
                y: (ev.clientY - rect.top) * (360 / rect.height)
            }).then(refresh);
        };

        document.getElementById('alerts-enabled').onchange = (ev) =>
            post('/api/alerts', {enabled: ev.target.checked});
        document.getElementById('alert-threshold').onchange = (ev) =>
            post('/api/alerts', {threshold: parseInt(ev.target.value, 10) || 0});

        function renderZones(list) {
            const box = document.getElementById('zone-list');
            box.innerHTML = '';
            list.forEach(z => {
                const row = document.createElement('div');
                row.className = 'zone-row';
                const badge = '<span class="count-badge' + (z.count > 0 ? ' busy' : '') + '">' + z.count + '</span>';
                row.innerHTML = '<span>' + z.name + (z.is_line ? ' (line)' : '') + '</span>' +
                    '<span>' + badge +
                    ' <button data-edit="' + z.id + '">Edit</button>' +
                    ' <button data-del="' + z.id + '">Delete</button></span>';
                box.appendChild(row);
            });
            box.querySelectorAll('[data-edit]').forEach(b => b.onclick = () =>
                post('/api/edit', {id: parseInt(b.dataset.edit, 10)}).then(refresh));
            box.querySelectorAll('[data-del]').forEach(b => b.onclick = () => {
                if (!confirm('Delete this zone?')) return;
                post('/api/delete', {id: parseInt(b.dataset.del, 10), confirmed: true}).then(refresh);
            });
        }

        function drawTrend(samples) {
            const cv = document.getElementById('trend');
            const ctx = cv.getContext('2d');
            cv.width = cv.clientWidth; cv.height = cv.clientHeight;
            ctx.clearRect(0, 0, cv.width, cv.height);
            if (!samples || samples.length < 2) return;
            const max = Math.max(1, ...samples.map(s => s.total));
            ctx.strokeStyle = '#3d64c4';
            ctx.beginPath();
            samples.forEach((s, i) => {
                const x = i / (samples.length - 1) * cv.width;
                const y = cv.height - (s.total / max) * (cv.height - 6) - 3;
                i === 0 ? ctx.moveTo(x, y) : ctx.lineTo(x, y);
            });
            ctx.stroke();
        }

        function drawBars(bars) {
            const cv = document.getElementById('bars');
            const ctx = cv.getContext('2d');
            cv.width = cv.clientWidth; cv.height = cv.clientHeight;
            ctx.clearRect(0, 0, cv.width, cv.height);
            if (!bars || !bars.length) return;
            const max = Math.max(1, ...bars.map(b => b.count));
            const bw = cv.width / bars.length;
            bars.forEach((b, i) => {
                const h = (b.count / max) * (cv.height - 18);
                ctx.fillStyle = '#2cc38a';
                ctx.fillRect(i * bw + 4, cv.height - h - 14, bw - 8, h);
                ctx.fillStyle = '#9fb0d0';
                ctx.font = '10px sans-serif';
                ctx.fillText(b.name.slice(0, 10), i * bw + 4, cv.height - 3);
            });
        }

        function refresh() {
            fetch('/api/state').then(r => r.json()).then(st => {
                frame.className = st.cursor;
                saveBtn.disabled = !st.save_enabled;
                cancelBtn.disabled = !st.cancel_enabled;
                lineBtn.classList.toggle('active', st.mode === 'drawing-line');
                polyBtn.classList.toggle('active', st.mode === 'drawing-polygon');
                document.getElementById('status-line').textContent =
                    st.mode + ' · ' + st.total + ' people · ' + st.channel_mode;
                document.getElementById('banner').classList.toggle('visible', st.banner);
                document.getElementById('alerts-enabled').checked = st.alerts_enabled;
                if (document.activeElement.id !== 'alert-threshold')
                    document.getElementById('alert-threshold').value = st.threshold;
                renderZones(st.zones || []);
                drawTrend(st.trend);
                drawBars(st.bars);
            }).catch(() => {});
        }

        post('/api/canvas', {width: 640, height: 360});
        refresh();
        setInterval(refresh, 1000);
    </script>
</body>
</html>
`
