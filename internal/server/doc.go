/*
Package server assembles the request pipeline of the app server and hosts it.

# Pipeline

Build turns an Options snapshot into a Pipeline: an ordered list of stages
followed by exactly one terminal error stage. Options are computed once at
startup by Probe and never re-evaluated.

Stages run in this order, each present only when its condition holds:

 1. cors (Options.ClientURL set): rs/cors, one allowed origin
 2. body (always): decodes json, urlencoded, text or raw bodies
 3. router (always): the application router, mounted at /
 4. static-public (Options.PublicDir exists): files from the public directory
 5. static-client (Options.ClientDir exists): files from the client build
 6. spa-fallback (Options.ClientDir exists): the client entry document

Requests nothing serves get http.NotFound.

# Errors

Stages and handlers forward failures with Fail, or by returning them from a
HandlerFunc. Panics are recovered and forwarded the same way. Forwarded
errors reach the terminal stage, LogErrors, which records one Error record
with the method and path and then passes the error unchanged to
RespondError. ErrorStage is the only stage type that receives an error and
a Pipeline holds exactly one, so the error logger is always last.

Under a Server, a failed request also gets its usual access log record from
LoggingMiddleware, at Warn with the error attached. That record describes
the request, not a second error: the Error level "request error" record is
the only error record per failure.

# Request-scoped middleware

Server wraps the pipeline with:
  - RequestIDMiddleware: X-Request-ID header and GetRequestID
  - LoggingMiddleware: one access log record per request, AddLogField/AddError
  - TimeoutMiddleware: optional context deadline
  - otelhttp instrumentation when tracing is enabled
*/
package server
