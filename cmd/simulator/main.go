// Simulator stands in for the external GPS tracking provider. It serves the
// provider's function API (getTrips, getLastPosition, getDeviceList) over
// HTTP and, when a broker is configured, publishes live device positions over
// MQTT. Trips are generated once at startup so repeated getTrips calls return
// identical records, which is what the sync reconciler's deduplication is
// exercised against.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Trip is the provider-native trip record the API returns.
type Trip struct {
	TripID       string  `json:"tripid"`
	BeginTime    int64   `json:"begintime"`
	EndTime      int64   `json:"endtime"`
	BeginLat     float64 `json:"beginlat"`
	BeginLon     float64 `json:"beginlon"`
	EndLat       float64 `json:"endlat"`
	EndLon       float64 `json:"endlon"`
	BeginAddress string  `json:"beginaddress"`
	EndAddress   string  `json:"endaddress"`
	Mileage      float64 `json:"mileage"`
}

// Sites around Sweden for realistic journal trips.
var sites = []struct {
	Name string
	Loc  Location
}{
	{"Huvudkontoret, Stockholm", Location{Lat: 59.3293, Lon: 18.0686}},
	{"Lagret, Västberga", Location{Lat: 59.2905, Lon: 17.9938}},
	{"Kund: Nordbygg AB, Uppsala", Location{Lat: 59.8586, Lon: 17.6389}},
	{"Kund: Svea Entreprenad, Södertälje", Location{Lat: 59.1955, Lon: 17.6253}},
	{"Verkstaden, Solna", Location{Lat: 59.3600, Lon: 18.0009}},
	{"Kund: Mälardalens Bygg, Västerås", Location{Lat: 59.6099, Lon: 16.5448}},
	{"Hemadress, Nacka", Location{Lat: 59.3107, Lon: 18.1634}},
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

type device struct {
	ID       string
	Name     string
	Trips    []Trip
	Position Location
}

type provider struct {
	mu      sync.RWMutex
	devices []*device
}

// generateTrips builds a month of history for one device: one to three trips
// a day between random sites.
func generateTrips(deviceID string) []Trip {
	var trips []Trip
	now := time.Now().UTC()
	seq := 0
	for day := 30; day >= 0; day-- {
		for n := rand.Intn(3) + 1; n > 0; n-- {
			from := sites[rand.Intn(len(sites))]
			to := sites[rand.Intn(len(sites))]
			if from.Name == to.Name {
				continue
			}
			begin := jitterLocation(from.Loc, 150)
			end := jitterLocation(to.Loc, 150)
			distance := haversineKm(begin, end) * (1.2 + rand.Float64()*0.3) // road factor
			start := now.AddDate(0, 0, -day).
				Add(-time.Duration(rand.Intn(10)) * time.Hour)
			duration := time.Duration(distance*1.5+float64(rand.Intn(20))) * time.Minute
			seq++
			trips = append(trips, Trip{
				TripID:       fmt.Sprintf("%s-T%04d", deviceID, seq),
				BeginTime:    start.Unix(),
				EndTime:      start.Add(duration).Unix(),
				BeginLat:     begin.Lat,
				BeginLon:     begin.Lon,
				EndLat:       end.Lat,
				EndLon:       end.Lon,
				BeginAddress: from.Name,
				EndAddress:   to.Name,
				Mileage:      math.Round(distance*10) / 10,
			})
		}
	}
	return trips
}

func newProvider(deviceCount int) *provider {
	p := &provider{}
	for i := 1; i <= deviceCount; i++ {
		id := fmt.Sprintf("GPS-%d", i)
		p.devices = append(p.devices, &device{
			ID:       id,
			Name:     fmt.Sprintf("Tracker %d", i),
			Trips:    generateTrips(id),
			Position: jitterLocation(sites[0].Loc, 500),
		})
	}
	return p
}

func (p *provider) find(deviceID string) *device {
	for _, d := range p.devices {
		if d.ID == deviceID {
			return d
		}
	}
	return nil
}

type request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

func (p *provider) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]any{"status": 1, "cause": "invalid request body"})
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	switch req.Action {
	case "getTrips":
		var params struct {
			DeviceID  string `json:"deviceId"`
			BeginTime int64  `json:"begintime"`
			EndTime   int64  `json:"endtime"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.DeviceID == "" {
			writeJSON(w, map[string]any{"status": 1, "cause": "deviceId is required"})
			return
		}
		d := p.find(params.DeviceID)
		if d == nil {
			writeJSON(w, map[string]any{"status": 2, "cause": "unknown device"})
			return
		}
		trips := []Trip{}
		for _, t := range d.Trips {
			if t.BeginTime >= params.BeginTime && t.BeginTime <= params.EndTime {
				trips = append(trips, t)
			}
		}
		writeJSON(w, map[string]any{"status": 0, "totaltrips": trips})

	case "getLastPosition":
		var params struct {
			DeviceIDs []string `json:"deviceIds"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSON(w, map[string]any{"status": 1, "cause": "deviceIds is required"})
			return
		}
		records := []map[string]any{}
		for _, id := range params.DeviceIDs {
			if d := p.find(id); d != nil {
				records = append(records, map[string]any{
					"deviceid":  d.ID,
					"lat":       d.Position.Lat,
					"lon":       d.Position.Lon,
					"timestamp": time.Now().Unix(),
				})
			}
		}
		writeJSON(w, map[string]any{"status": 0, "records": records})

	case "getDeviceList":
		devices := []map[string]any{}
		for _, d := range p.devices {
			devices = append(devices, map[string]any{"deviceid": d.ID, "name": d.Name})
		}
		writeJSON(w, map[string]any{
			"status": 0,
			"groups": []map[string]any{{"name": "default", "devices": devices}},
		})

	default:
		writeJSON(w, map[string]any{"status": 1, "cause": "unknown action " + req.Action})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// publishPositions drifts every device a little and publishes the new
// position on fleet/<device>/position.
func (p *provider) publishPositions(client mqtt.Client) {
	for range time.Tick(5 * time.Second) {
		p.mu.Lock()
		for _, d := range p.devices {
			d.Position = jitterLocation(d.Position, 80)
			payload, _ := json.Marshal(map[string]any{
				"deviceid":  d.ID,
				"lat":       d.Position.Lat,
				"lon":       d.Position.Lon,
				"timestamp": time.Now().Unix(),
			})
			client.Publish(fmt.Sprintf("fleet/%s/position", d.ID), 0, false, payload)
		}
		p.mu.Unlock()
	}
}

func main() {
	godotenv.Load()

	deviceCount := 5
	if v := os.Getenv("DEVICE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			deviceCount = n
		}
	}
	p := newProvider(deviceCount)
	log.WithField("devices", deviceCount).Info("GPS provider simulator ready")

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("gps-simulator")
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Warn("MQTT unavailable, positions not published")
		} else {
			go p.publishPositions(client)
			log.WithField("broker", broker).Info("Publishing positions over MQTT")
		}
	}

	http.HandleFunc("/", p.handle)
	port := os.Getenv("SIMULATOR_PORT")
	if port == "" {
		port = "9090"
	}
	log.WithField("port", port).Info("Provider API listening")
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
