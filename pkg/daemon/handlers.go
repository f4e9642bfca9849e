package daemon

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wqlog/wqlog/pkg/types"
	"github.com/wqlog/wqlog/pkg/version"
)

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", d.getStatus)
	router.POST("/cycle", d.triggerCycle)
	router.GET("/calibration/:sensor", d.getCalibration)
	router.POST("/calibration/reload", d.reloadCalibration)
	router.GET("/power", d.getPower)
	router.GET("/events", d.streamEvents)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))
	router.GET("/version", getVersion)

	return router
}

func (d *Daemon) status(withHistory bool) types.Status {
	rec := d.loop.Recorder()
	st := types.Status{
		State:              d.loop.State(),
		Driver:             d.driver,
		Target:             d.target.String(),
		Interval:           d.loop.Interval(),
		ConsecutiveSkipped: rec.ConsecutiveSkipped(),
	}
	if last, ok := rec.GetLastRecord(); ok {
		st.LastResult = &last
	}
	if t, ok := rec.LastDelivered(); ok {
		st.LastDelivered = &t
	}
	if withHistory {
		st.History = rec.GetRecords()
	}
	return st
}

func (d *Daemon) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.status(c.Query("history") == "1"))
}

func (d *Daemon) triggerCycle(c *gin.Context) {
	res, err := d.loop.TriggerCycle(c.Request.Context())
	if err != nil {
		logrus.Errorf("triggerCycle failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, res)
}

func (d *Daemon) getCalibration(c *gin.Context) {
	name := c.Param("sensor")
	e, ok := d.hardware.Engines()[name]
	if !ok {
		c.IndentedJSON(http.StatusNotFound, "unknown sensor "+name)
		return
	}

	resp := types.Calibration{
		Sensor: e.Name(),
		File:   e.File(),
	}
	if st, ok := e.State(); ok {
		resp.Calibrated = true
		resp.State = &st

		v, err := e.Voltage()
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Voltage = v
			resp.Value = st.Value(v)
		}
	}

	c.IndentedJSON(http.StatusOK, resp)
}

func (d *Daemon) reloadCalibration(c *gin.Context) {
	if err := d.reloadCalibrations(); err != nil {
		logrus.Errorf("reloadCalibration failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, "calibrations reloaded")
}

func (d *Daemon) getPower(c *gin.Context) {
	snap, err := d.power()
	if err != nil {
		logrus.Errorf("getPower failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, snap)
}

// streamEvents relays hub events as server-sent events until the client
// disconnects.
func (d *Daemon) streamEvents(c *gin.Context) {
	ch := d.hub.Subscribe()
	defer d.hub.Unsubscribe(ch)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
