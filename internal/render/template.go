package render

import "html/template"

var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1.0"/>
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="{{.Assets.LeafletCSS}}"/>
  <script src="{{.Assets.LeafletJS}}"></script>
  {{- if .Minimap}}
  <link rel="stylesheet" href="{{.Assets.MiniMapCSS}}"/>
  <script src="{{.Assets.MiniMapJS}}"></script>
  {{- end}}
  <style>
    html, body { width: 100%; height: 100%; margin: 0; padding: 0; }
    #map { position: absolute; top: 0; bottom: 0; right: 0; left: 0; }
    .overdose-tooltip table { border-collapse: collapse; }
    .overdose-tooltip th { text-align: left; padding-right: 0.5em; }
    .generated-at { background: rgba(0, 0, 0, 0.6); color: #ccc; font: 11px Arial, sans-serif; padding: 2px 6px; }
  </style>
</head>
<body>
  <div id="map"></div>
  <script>
    var map = L.map("map", {
      center: [{{.Center.Lat}}, {{.Center.Lon}}],
      zoom: {{.Zoom}},
      zoomControl: true
    });

    L.tileLayer({{.Tiles.URL}}, {
      attribution: {{.Tiles.Attribution}},
      subdomains: {{.Tiles.Subdomains}},
      maxZoom: {{.Tiles.MaxZoom}}
    }).addTo(map);

    function escapeHTML(value) {
      var div = document.createElement("div");
      div.textContent = String(value);
      return div.innerHTML;
    }

    function tooltipHTML(props, fields, labels) {
      var rows = "";
      for (var i = 0; i < fields.length; i++) {
        var value = props[fields[i]];
        if (value === undefined || value === null) {
          value = "";
        }
        rows += "<tr>";
        if (labels) {
          rows += "<th>" + escapeHTML(fields[i]) + "</th>";
        }
        rows += "<td>" + escapeHTML(value) + "</td></tr>";
      }
      return "<table>" + rows + "</table>";
    }

    function fillColor(palette, value, max) {
      if (!max || max <= 0) {
        return palette[0];
      }
      var idx = Math.floor((value / max) * (palette.length - 1));
      return palette[Math.max(0, Math.min(palette.length - 1, idx))];
    }
    {{range .Layers}}
    L.geoJson({{.Data}}, {
      name: {{.Name}},
      style: function (feature) {
        return {
          color: "#f0f0f0",
          weight: 1,
          fillOpacity: 0.6,
          fillColor: fillColor({{.Palette}}, feature.properties[{{.ValueField}}] || 0, {{.MaxValue}})
        };
      },
      onEachFeature: function (feature, layer) {
        layer.bindTooltip(tooltipHTML(feature.properties, {{.Fields}}, {{.Labels}}), {
          sticky: {{.Sticky}},
          className: "overdose-tooltip"
        });
      }
    }).addTo(map);
    {{end}}
    {{- if .Minimap}}
    new L.Control.MiniMap(L.tileLayer({{.MiniMapTiles}}), {
      toggleDisplay: true,
      position: "bottomright"
    }).addTo(map);
    {{- end}}

    var generated = L.control({position: "bottomleft"});
    generated.onAdd = function () {
      var div = L.DomUtil.create("div", "generated-at");
      div.textContent = {{.GeneratedAt}};
      return div;
    };
    generated.addTo(map);
  </script>
</body>
</html>
`))
